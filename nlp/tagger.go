// Package nlp provides local, deterministic implementations of the tagger
// and sentiment collaborators. They are heuristic stand-ins for external
// NLP services, good enough for feature extraction to work offline; a
// deployment can swap in real services behind the same interfaces.
package nlp

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/memoriahq/memoria-go/memory"
)

var (
	wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)
	dateRe = regexp.MustCompile(`\b(\d{4}|\d{1,2}/\d{1,2}(/\d{2,4})?)\b`)
)

var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
}

// Tagger is a lexicon-free local tagger. Named entities are approximated
// by capitalized word runs (skipping sentence-initial words unless the run
// continues) and date-like tokens; noun salience is approximated by
// stopword filtering.
type Tagger struct{}

// NewTagger creates the local tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// Tag implements memory.Tagger.
func (t *Tagger) Tag(_ context.Context, text string) ([]memory.Span, []memory.Token, error) {
	var spans []memory.Span
	var tokens []memory.Token

	for _, sentence := range splitSentences(text) {
		words := wordRe.FindAllString(sentence, -1)

		// Capitalized runs. A sentence-initial capital only counts when
		// the capitalization continues into the next word.
		i := 0
		for i < len(words) {
			if !isCapitalized(words[i]) {
				i++
				continue
			}
			j := i
			for j < len(words) && isCapitalized(words[j]) {
				j++
			}
			run := words[i:j]
			if i > 0 || len(run) > 1 {
				spans = append(spans, memory.Span{
					Text:  strings.Join(run, " "),
					Label: memory.LabelProper,
				})
			}
			i = j
		}

		for _, w := range words {
			lower := strings.ToLower(w)
			stop := stopwords[lower]
			tokens = append(tokens, memory.Token{
				Text:     w,
				Noun:     !stop,
				Stopword: stop,
			})
			if monthNames[lower] {
				spans = append(spans, memory.Span{Text: w, Label: memory.LabelDate})
			}
		}
	}

	for _, d := range dateRe.FindAllString(text, -1) {
		spans = append(spans, memory.Span{Text: d, Label: memory.LabelDate})
	}

	return spans, tokens, nil
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func isCapitalized(w string) bool {
	if len(w) < 2 {
		return false
	}
	runes := []rune(w)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	// All-caps words are usually acronyms; keep them.
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return !stopwords[strings.ToLower(w)]
}

// stopwords is a compact English function-word list used for both noun
// filtering and sentence-initial capital handling.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"if": true, "then": true, "else": true, "when": true, "while": true,
	"of": true, "at": true, "by": true, "for": true, "with": true,
	"about": true, "against": true, "between": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "to": true, "from": true, "up": true,
	"down": true, "in": true, "out": true, "on": true, "off": true,
	"over": true, "under": true, "again": true, "further": true,
	"once": true, "here": true, "there": true, "all": true, "any": true,
	"both": true, "each": true, "few": true, "more": true, "most": true,
	"other": true, "some": true, "such": true, "no": true, "nor": true,
	"not": true, "only": true, "own": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "can": true, "will": true,
	"just": true, "should": true, "now": true, "i": true, "me": true,
	"my": true, "we": true, "our": true, "you": true, "your": true,
	"he": true, "him": true, "his": true, "she": true, "her": true,
	"it": true, "its": true, "they": true, "them": true, "their": true,
	"what": true, "which": true, "who": true, "whom": true, "this": true,
	"that": true, "these": true, "those": true, "am": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "having": true,
	"do": true, "does": true, "did": true, "doing": true, "would": true,
	"could": true, "ought": true, "as": true, "until": true, "because": true,
	"how": true, "where": true, "why": true, "got": true, "get": true,
	"went": true,
}
