package extract

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/memoriahq/memoria-go/memory"
	"github.com/memoriahq/memoria-go/nlp"
)

// fakeSentiment returns a fixed reading, or an error when err is set.
type fakeSentiment struct {
	reading memory.SentimentReading
	err     error
}

func (f *fakeSentiment) Analyze(context.Context, string) (memory.SentimentReading, error) {
	if f.err != nil {
		return memory.SentimentReading{}, f.err
	}
	return f.reading, nil
}

// fakeTagger returns canned spans and tokens.
type fakeTagger struct {
	spans  []memory.Span
	tokens []memory.Token
	err    error
}

func (f *fakeTagger) Tag(context.Context, string) ([]memory.Span, []memory.Token, error) {
	return f.spans, f.tokens, f.err
}

func newLocal() *Extractor {
	return New(nlp.NewTagger(), nlp.NewSentiment())
}

func TestExtractDinnerScenario(t *testing.T) {
	x := newLocal()
	feats := x.Extract(context.Background(), Input{
		Text: "Had dinner with Mom at the new Italian restaurant",
	})

	wantEntities := []string{"Mom", "Italian", "dinner", "new", "restaurant"}
	if !reflect.DeepEqual(feats.Entities, wantEntities) {
		t.Errorf("entities = %v, want %v", feats.Entities, wantEntities)
	}
	if !reflect.DeepEqual(feats.Categories, []string{"family", "food"}) {
		t.Errorf("categories = %v, want [family food]", feats.Categories)
	}
	// 0.3 base + 0.15 entities + 0.1 important category, no opinion words.
	if math.Abs(feats.Importance-0.55) > 1e-9 {
		t.Errorf("importance = %v, want 0.55", feats.Importance)
	}
	if feats.Emotions.Neutral != 1 || feats.Emotions.Joy != 0 || feats.Emotions.Sadness != 0 {
		t.Errorf("emotions = %+v, want fully neutral", feats.Emotions)
	}
}

func TestExtractDefaultCategory(t *testing.T) {
	x := newLocal()
	feats := x.Extract(context.Background(), Input{Text: "zzz qqq"})
	if !reflect.DeepEqual(feats.Categories, []string{DefaultCategory}) {
		t.Errorf("categories = %v, want [%s]", feats.Categories, DefaultCategory)
	}
}

func TestExtractDeterministic(t *testing.T) {
	x := newLocal()
	in := Input{Text: "Went for a hike with my friend Anna, it was wonderful"}
	a := x.Extract(context.Background(), in)
	b := x.Extract(context.Background(), in)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("extraction not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestEmotionProfiles(t *testing.T) {
	tests := []struct {
		name    string
		reading memory.SentimentReading
		want    memory.Emotions
	}{
		{
			name:    "joyful",
			reading: memory.SentimentReading{Polarity: 0.8, Subjectivity: 0.5},
			want:    memory.Emotions{Joy: 0.8, Intensity: 0.5, Polarity: 0.8},
		},
		{
			name:    "sad",
			reading: memory.SentimentReading{Polarity: -0.6, Subjectivity: 0.4},
			want:    memory.Emotions{Sadness: 0.6, Intensity: 0.4, Polarity: -0.6},
		},
		{
			name:    "near neutral",
			reading: memory.SentimentReading{Polarity: 0.05, Subjectivity: 0.3},
			want:    memory.Emotions{Neutral: 0.7, Intensity: 0.3, Polarity: 0.05},
		},
		{
			name:    "out of range polarity clamps",
			reading: memory.SentimentReading{Polarity: 1.7, Subjectivity: 0.2},
			want:    memory.Emotions{Joy: 1, Intensity: 0.2, Polarity: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := New(nil, &fakeSentiment{reading: tt.reading})
			got := x.Extract(context.Background(), Input{Text: "some text"}).Emotions
			if math.Abs(got.Joy-tt.want.Joy) > 1e-9 ||
				math.Abs(got.Sadness-tt.want.Sadness) > 1e-9 ||
				math.Abs(got.Neutral-tt.want.Neutral) > 1e-9 ||
				math.Abs(got.Intensity-tt.want.Intensity) > 1e-9 ||
				math.Abs(got.Polarity-tt.want.Polarity) > 1e-9 {
				t.Errorf("emotions = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSentimentFailureDefaultsToNeutral(t *testing.T) {
	x := New(nil, &fakeSentiment{err: errors.New("service down")})
	got := x.Extract(context.Background(), Input{Text: "some text"}).Emotions
	want := memory.Emotions{Neutral: 1}
	if got != want {
		t.Errorf("emotions = %+v, want %+v", got, want)
	}
}

func TestTaggerFailureDropsTextEntities(t *testing.T) {
	x := New(&fakeTagger{err: errors.New("service down")}, nil)
	feats := x.Extract(context.Background(), Input{
		Text:          "some text",
		ImageEntities: []string{"dog"},
	})
	if !reflect.DeepEqual(feats.Entities, []string{"dog"}) {
		t.Errorf("entities = %v, want image entities only", feats.Entities)
	}
}

func TestNilCollaboratorsDegrade(t *testing.T) {
	x := New(nil, nil)
	feats := x.Extract(context.Background(), Input{Text: "Anything here"})
	if len(feats.Entities) != 0 {
		t.Errorf("entities = %v, want none", feats.Entities)
	}
	if feats.Emotions.Neutral != 1 {
		t.Errorf("emotions = %+v, want neutral", feats.Emotions)
	}
	if !reflect.DeepEqual(feats.Categories, []string{DefaultCategory}) {
		t.Errorf("categories = %v, want [%s]", feats.Categories, DefaultCategory)
	}
}

func TestEntityDeduplicationFirstSeen(t *testing.T) {
	x := New(&fakeTagger{
		spans: []memory.Span{
			{Text: "Mom", Label: memory.LabelProper},
		},
		tokens: []memory.Token{
			{Text: "mom", Noun: true},
			{Text: "dinner", Noun: true},
		},
	}, nil)
	feats := x.Extract(context.Background(), Input{
		Text:          "text",
		ImageEntities: []string{"Dinner", "cake"},
	})
	want := []string{"Mom", "dinner", "cake"}
	if !reflect.DeepEqual(feats.Entities, want) {
		t.Errorf("entities = %v, want %v", feats.Entities, want)
	}
}

func TestPillarTagging(t *testing.T) {
	x := newLocal()
	pillars := []memory.Pillar{
		{Category: memory.PillarPeople, Name: "Mom"},
		{Category: memory.PillarInterests, Name: "Rock Climbing"},
	}

	feats := x.Extract(context.Background(), Input{
		Text:    "Went climbing at the gym then called mom",
		Pillars: pillars,
	})

	wantTags := []string{"pillar_people", "pillar_interests"}
	if !reflect.DeepEqual(feats.PillarTags, wantTags) {
		t.Errorf("pillar tags = %v, want %v", feats.PillarTags, wantTags)
	}
	for _, want := range []string{"pillar_people", "people", "pillar_interests", "interests"} {
		found := false
		for _, c := range feats.Categories {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("categories %v missing %q", feats.Categories, want)
		}
	}
}

func TestPillarNoMatchNoTags(t *testing.T) {
	x := newLocal()
	feats := x.Extract(context.Background(), Input{
		Text:    "Quiet evening reading a book",
		Pillars: []memory.Pillar{{Category: memory.PillarPeople, Name: "Ximena"}},
	})
	if len(feats.PillarTags) != 0 {
		t.Errorf("pillar tags = %v, want none", feats.PillarTags)
	}
}

func TestImportanceClampsAtOne(t *testing.T) {
	x := New(&fakeTagger{
		tokens: []memory.Token{
			{Text: "one", Noun: true}, {Text: "two", Noun: true},
			{Text: "three", Noun: true}, {Text: "four", Noun: true},
			{Text: "five", Noun: true}, {Text: "six", Noun: true},
		},
	}, &fakeSentiment{reading: memory.SentimentReading{Polarity: 1, Subjectivity: 1}})

	long := "family family family family family family family family family family family family"
	feats := x.Extract(context.Background(), Input{
		Text:       long,
		Pillars:    []memory.Pillar{{Category: memory.PillarPeople, Name: "family"}},
		PhotoCount: 5,
	})
	if feats.Importance != 1.0 {
		t.Errorf("importance = %v, want clamp at 1.0", feats.Importance)
	}
}

func TestImageOnlyInput(t *testing.T) {
	x := newLocal()
	feats := x.Extract(context.Background(), Input{
		ImageEntities: []string{"dog", "park"},
		ImageLabels:   []string{"outdoors"},
		PhotoCount:    1,
	})

	if !reflect.DeepEqual(feats.Entities, []string{"dog", "park"}) {
		t.Errorf("entities = %v, want [dog park]", feats.Entities)
	}
	if !reflect.DeepEqual(feats.Categories, []string{"nature"}) {
		t.Errorf("categories = %v, want [nature]", feats.Categories)
	}
	// 0.3 base + 0.06 entities + 0.05 photo.
	if math.Abs(feats.Importance-0.41) > 1e-9 {
		t.Errorf("importance = %v, want 0.41", feats.Importance)
	}
}
