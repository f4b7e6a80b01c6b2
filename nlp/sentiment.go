package nlp

import (
	"context"
	"strings"

	"github.com/memoriahq/memoria-go/memory"
)

// Sentiment is a lexicon-based local sentiment analyzer. Polarity is the
// intensity-weighted mean of matched opinion words in [-1, 1]; subjectivity
// is the fraction of opinion-bearing words scaled into [0, 1].
type Sentiment struct{}

// NewSentiment creates the local analyzer.
func NewSentiment() *Sentiment {
	return &Sentiment{}
}

// Analyze implements memory.Sentiment.
func (s *Sentiment) Analyze(_ context.Context, text string) (memory.SentimentReading, error) {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return memory.SentimentReading{}, nil
	}

	var sum float64
	var opinionated int
	negated := false
	boost := 1.0

	for _, w := range words {
		if negators[w] {
			negated = true
			continue
		}
		if mult, ok := intensifiers[w]; ok {
			boost = mult
			opinionated++
			continue
		}

		score, ok := polarityLexicon[w]
		if !ok {
			// Negation and intensity only carry to the next opinion word.
			continue
		}

		score *= boost
		if negated {
			score = -score * 0.8
		}
		sum += score
		opinionated++
		negated = false
		boost = 1.0
	}

	if opinionated == 0 {
		return memory.SentimentReading{}, nil
	}

	polarity := sum / float64(opinionated)
	if polarity > 1 {
		polarity = 1
	} else if polarity < -1 {
		polarity = -1
	}

	subjectivity := float64(opinionated) / float64(len(words)) * 2.5
	if subjectivity > 1 {
		subjectivity = 1
	}

	return memory.SentimentReading{Polarity: polarity, Subjectivity: subjectivity}, nil
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true,
	"nobody": true, "nothing": true, "cannot": true, "can't": true,
	"don't": true, "doesn't": true, "didn't": true, "won't": true,
	"wasn't": true, "isn't": true, "aren't": true, "weren't": true,
}

var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"extremely":  1.5,
	"absolutely": 1.5,
	"incredibly": 1.5,
	"so":         1.2,
	"totally":    1.3,
	"quite":      1.1,
	"slightly":   0.6,
	"somewhat":   0.7,
	"barely":     0.5,
}

// polarityLexicon maps opinion words to polarity scores in [-1, 1].
var polarityLexicon = map[string]float64{
	// positive
	"good": 0.5, "great": 0.8, "excellent": 0.9, "amazing": 0.9,
	"wonderful": 0.9, "fantastic": 0.9, "awesome": 0.9, "love": 0.8,
	"loved": 0.8, "like": 0.4, "liked": 0.4, "enjoy": 0.6, "enjoyed": 0.6,
	"happy": 0.8, "joy": 0.8, "glad": 0.6, "delighted": 0.9,
	"beautiful": 0.7, "nice": 0.5, "fun": 0.6, "best": 0.9,
	"perfect": 0.9, "favorite": 0.7, "exciting": 0.7, "excited": 0.7,
	"grateful": 0.8, "proud": 0.7, "peaceful": 0.6, "relaxing": 0.6,
	"delicious": 0.8, "sweet": 0.5, "warm": 0.4, "special": 0.5,
	"memorable": 0.6, "success": 0.7, "successful": 0.7, "win": 0.6,
	"won": 0.6, "celebrate": 0.7, "celebrated": 0.7, "laugh": 0.6,
	"laughed": 0.6, "smile": 0.6, "smiled": 0.6, "thankful": 0.8,

	// negative
	"bad": -0.5, "terrible": -0.9, "awful": -0.9, "horrible": -0.9,
	"hate": -0.8, "hated": -0.8, "sad": -0.7, "unhappy": -0.7,
	"angry": -0.7, "upset": -0.6, "worried": -0.6, "worry": -0.6,
	"anxious": -0.6, "stressed": -0.7, "stress": -0.6, "tired": -0.4,
	"exhausted": -0.6, "sick": -0.6, "hurt": -0.6, "pain": -0.7,
	"painful": -0.7, "lost": -0.5, "lonely": -0.7, "miss": -0.4,
	"missed": -0.4, "cry": -0.7, "cried": -0.7, "afraid": -0.6,
	"scared": -0.6, "fear": -0.6, "failed": -0.7, "failure": -0.7,
	"worst": -0.9, "disappointing": -0.7, "disappointed": -0.7,
	"annoying": -0.6, "annoyed": -0.6, "frustrated": -0.7,
	"frustrating": -0.7, "broke": -0.5, "broken": -0.5, "died": -0.9,
	"death": -0.8, "grief": -0.9, "argue": -0.6, "argued": -0.6,
	"fight": -0.6, "fought": -0.6,
}
