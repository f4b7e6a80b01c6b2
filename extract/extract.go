// Package extract turns raw memory text plus optional image-derived and
// pillar signal into the feature set stored on every record: entities,
// emotions, categories and an importance score.
//
// Extraction is deterministic for identical input. Missing collaborators
// degrade gracefully: entities become empty, sentiment defaults to
// neutral. Extraction never fails for absent signal.
package extract

import (
	"context"
	"log"
	"strings"

	"github.com/memoriahq/memoria-go/memory"
)

// Input is everything extraction looks at for one memory.
type Input struct {
	// Text is the memory content (already substituted with a synthesized
	// description when the user supplied none).
	Text string

	// ImageEntities and ImageLabels come from the vision collaborator.
	ImageEntities []string
	ImageLabels   []string

	// Pillars is the owner's taxonomy, used for pillar tagging.
	Pillars []memory.Pillar

	// PhotoCount is the number of photos attached to the memory.
	PhotoCount int
}

// Features is the extraction result.
type Features struct {
	Entities   []string
	Emotions   memory.Emotions
	Categories []string
	PillarTags []string
	Importance float64
}

// Extractor runs the feature pipeline. Both collaborators may be nil.
type Extractor struct {
	tagger    memory.Tagger
	sentiment memory.Sentiment
}

// New creates an extractor with the given collaborators.
func New(tagger memory.Tagger, sentiment memory.Sentiment) *Extractor {
	return &Extractor{tagger: tagger, sentiment: sentiment}
}

// Extract computes the full feature set for one memory.
func (x *Extractor) Extract(ctx context.Context, in Input) Features {
	entities := x.extractEntities(ctx, in.Text, in.ImageEntities)
	emotions := x.analyzeSentiment(ctx, in.Text)
	categories, pillarTags := categorize(in.Text, entities, in.ImageLabels, in.Pillars)
	importance := scoreImportance(in.Text, emotions, entities, categories, pillarTags, in.PhotoCount)

	return Features{
		Entities:   entities,
		Emotions:   emotions,
		Categories: categories,
		PillarTags: pillarTags,
		Importance: importance,
	}
}

// extractEntities unions named entities, salient nouns and image-derived
// entities, deduplicated in first-seen order.
func (x *Extractor) extractEntities(ctx context.Context, text string, imageEntities []string) []string {
	var entities []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if seen[key] {
			return
		}
		seen[key] = true
		entities = append(entities, s)
	}

	if x.tagger != nil && text != "" {
		spans, tokens, err := x.tagger.Tag(ctx, text)
		if err != nil {
			log.Printf("[EXTRACT] tagger unavailable, continuing without text entities: %v", err)
		} else {
			for _, sp := range spans {
				add(sp.Text)
			}
			for _, tok := range tokens {
				if tok.Noun && !tok.Stopword && len(tok.Text) > 2 {
					add(tok.Text)
				}
			}
		}
	}

	for _, e := range imageEntities {
		add(e)
	}

	return entities
}

// analyzeSentiment maps the raw (polarity, subjectivity) signal onto the
// emotion profile. An absent or failing collaborator yields a neutral
// reading: polarity 0, subjectivity 0.
func (x *Extractor) analyzeSentiment(ctx context.Context, text string) memory.Emotions {
	var reading memory.SentimentReading
	if x.sentiment != nil && text != "" {
		r, err := x.sentiment.Analyze(ctx, text)
		if err != nil {
			log.Printf("[EXTRACT] sentiment unavailable, defaulting to neutral: %v", err)
		} else {
			reading = r
		}
	}

	polarity := clamp(reading.Polarity, -1, 1)
	subjectivity := clamp(reading.Subjectivity, 0, 1)

	e := memory.Emotions{
		Intensity: subjectivity,
		Polarity:  polarity,
	}
	if polarity > 0.1 {
		e.Joy = polarity
	}
	if polarity < -0.1 {
		e.Sadness = -polarity
	}
	if polarity < 0.1 && polarity > -0.1 {
		e.Neutral = 1 - subjectivity
	}
	return e
}

// categorize matches the keyword table against the concatenation of text,
// image labels and entity strings, then applies pillar tagging. Returns
// the category set (never empty) and the pillar_<category> tags.
func categorize(text string, entities, imageLabels []string, pillars []memory.Pillar) ([]string, []string) {
	var haystack strings.Builder
	haystack.WriteString(strings.ToLower(text))
	for _, l := range imageLabels {
		haystack.WriteByte(' ')
		haystack.WriteString(strings.ToLower(l))
	}
	for _, e := range entities {
		haystack.WriteByte(' ')
		haystack.WriteString(strings.ToLower(e))
	}
	matchable := haystack.String()

	var categories []string
	seen := make(map[string]bool)
	addCategory := func(c string) {
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	for _, row := range categoryKeywords {
		for _, kw := range row.keywords {
			if strings.Contains(matchable, kw) {
				addCategory(row.category)
				break
			}
		}
	}

	var pillarTags []string
	textLower := strings.ToLower(text)
	for _, p := range pillars {
		if !pillarMatches(p.Name, textLower, entities, imageLabels) {
			continue
		}
		tag := "pillar_" + string(p.Category)
		pillarTags = append(pillarTags, tag)
		addCategory(tag)
		addCategory(string(p.Category))
	}

	if len(categories) == 0 {
		categories = []string{DefaultCategory}
	}
	return categories, pillarTags
}

// pillarMatches reports whether the pillar name (or, for multi-word names,
// any constituent word longer than 2 characters) appears in the text, an
// entity string or an image label.
func pillarMatches(name, textLower string, entities, imageLabels []string) bool {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return false
	}

	needles := []string{nameLower}
	if words := strings.Fields(nameLower); len(words) > 1 {
		for _, w := range words {
			if len(w) > 2 {
				needles = append(needles, w)
			}
		}
	}

	for _, needle := range needles {
		if strings.Contains(textLower, needle) {
			return true
		}
		for _, e := range entities {
			if strings.Contains(strings.ToLower(e), needle) {
				return true
			}
		}
		for _, l := range imageLabels {
			if strings.Contains(strings.ToLower(l), needle) {
				return true
			}
		}
	}
	return false
}

// scoreImportance blends emotional intensity, entity richness, category
// weight, pillar relevance, photo count and text length into a single
// score clamped to [0.1, 1.0].
func scoreImportance(text string, emotions memory.Emotions, entities, categories, pillarTags []string, photoCount int) float64 {
	score := 0.3

	score += emotions.Intensity * 0.25
	score += max(emotions.Joy, emotions.Sadness) * 0.2
	score += min(float64(len(entities))*0.03, 0.15)

	for _, c := range categories {
		if importantCategories[c] {
			score += 0.1
			break
		}
	}

	score += min(float64(len(pillarTags))*0.1, 0.2)
	score += min(float64(photoCount)*0.05, 0.15)

	wordCount := len(strings.Fields(text))
	if wordCount > 10 {
		score += min(float64(wordCount)/100, 0.1)
	}

	return clamp(score, 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
