package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a record does not exist for the
// given owner. Callers use errors.Is to distinguish it from store failures.
var ErrNotFound = errors.New("memory: record not found")

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local SDK), openai (API-based),
// cached (ristretto wrapper around any of them).
//
// Embed must be deterministic for identical input and model version.
// Returned vectors are NOT required to be unit-norm; the engine normalizes
// before any index operation.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// EntityLabel classifies a tagged span.
type EntityLabel string

const (
	// LabelProper marks a capitalized span the tagger cannot classify
	// further; richer taggers may introduce their own labels.
	LabelProper EntityLabel = "proper"

	LabelDate EntityLabel = "date"
)

// Span is a named entity found in text.
type Span struct {
	Text  string
	Label EntityLabel
}

// Token is a single word with the flags the extractor cares about.
type Token struct {
	Text     string
	Noun     bool
	Stopword bool
}

// Tagger is the entity/part-of-speech collaborator.
// A nil Tagger or a failing call degrades to an empty entity set.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]Span, []Token, error)
}

// SentimentReading is the raw sentiment signal for a text.
// Polarity is in [-1, 1], Subjectivity in [0, 1].
type SentimentReading struct {
	Polarity     float64
	Subjectivity float64
}

// Sentiment is the sentiment-analysis collaborator.
// A nil Sentiment or a failing call degrades to a neutral reading.
type Sentiment interface {
	Analyze(ctx context.Context, text string) (SentimentReading, error)
}

// PhotoDescription is the image-derived signal for a single photo.
type PhotoDescription struct {
	// Objects are concrete things detected in the photo ("dog", "park").
	Objects []string

	// Labels are broader scene/topic labels ("outdoors", "animal").
	Labels []string

	// Text is OCR-extracted text, empty when the photo contains none.
	Text string
}

// Vision is the image-entity collaborator. Describe may fail per photo;
// the engine skips the failed photo and continues with the rest.
type Vision interface {
	Describe(ctx context.Context, photoURL string) (*PhotoDescription, error)
}

// RecordStore is the durable relational store for memory records and their
// photo attachments. It is the source of truth for all fields except raw
// vectors.
type RecordStore interface {
	// InsertMemory persists a record and its photos, generating IDs for
	// both, and returns the new record ID. The record's VectorPosition
	// must already be set by the caller.
	InsertMemory(ctx context.Context, rec *MemoryRecord) (string, error)

	// GetMemory fetches a record with its photos, scoped to the owner.
	// Returns ErrNotFound when no such record exists for that owner.
	GetMemory(ctx context.Context, owner, id string) (*MemoryRecord, error)

	// RecentMemories lists the owner's newest records first.
	RecentMemories(ctx context.Context, owner string, limit int) ([]*MemoryRecord, error)

	// MemoriesByOwner lists all of the owner's records ordered by
	// importance then recency, for category clustering.
	MemoriesByOwner(ctx context.Context, owner string) ([]*MemoryRecord, error)
}

// PillarStore persists user pillars (the people / interests / life-events
// taxonomy used as a relevance boosting signal).
type PillarStore interface {
	// SavePillars creates the given pillars for the owner and returns them
	// with generated IDs. Unknown categories are rejected.
	SavePillars(ctx context.Context, owner string, drafts []PillarDraft) ([]Pillar, error)

	// Pillars lists all of the owner's pillars ordered by category then
	// creation time.
	Pillars(ctx context.Context, owner string) ([]Pillar, error)
}
