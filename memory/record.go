package memory

import (
	"fmt"
	"time"
)

// Emotions holds the emotional profile derived from the sentiment signal.
// Joy, Sadness, Neutral and Intensity are in [0, 1]; Polarity in [-1, 1].
type Emotions struct {
	Joy       float64 `json:"joy"`
	Sadness   float64 `json:"sadness"`
	Neutral   float64 `json:"neutral"`
	Intensity float64 `json:"intensity"`
	Polarity  float64 `json:"polarity"`
}

// Photo is a stored photo attachment. The image bytes live in external
// object storage; only the URL and provenance reference are kept here.
type Photo struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	ProvenanceID string            `json:"provenance_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// MemoryRecord is a single stored memory. Records are immutable once
// created; there is no update or delete operation.
type MemoryRecord struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Content    string    `json:"content"`
	Entities   []string  `json:"entities"`
	Categories []string  `json:"categories"`
	Emotions   Emotions  `json:"emotions"`
	Importance float64   `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`

	// VectorPosition is the record's ordinal position in the vector index,
	// assigned atomically with the record's creation.
	VectorPosition int `json:"vector_position"`

	Photos []Photo `json:"photos,omitempty"`
}

// PillarCategory is the closed set of pillar kinds.
type PillarCategory string

const (
	PillarPeople     PillarCategory = "people"
	PillarInterests  PillarCategory = "interests"
	PillarLifeEvents PillarCategory = "life_events"
)

// ValidPillarCategory reports whether c is one of the known categories.
func ValidPillarCategory(c PillarCategory) bool {
	switch c {
	case PillarPeople, PillarInterests, PillarLifeEvents:
		return true
	}
	return false
}

// PillarDraft is the caller-supplied part of a pillar, before the store
// assigns identity.
type PillarDraft struct {
	Category  PillarCategory `json:"category"`
	Name      string         `json:"name"`
	AvatarURL string         `json:"avatar_url,omitempty"`
}

// Validate checks draft fields against the closed category set.
func (d PillarDraft) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("pillar name is required")
	}
	if !ValidPillarCategory(d.Category) {
		return fmt.Errorf("unknown pillar category %q", d.Category)
	}
	return nil
}

// Pillar is a user-defined taxonomy entry (a person, interest or life
// event) used to boost relevance of matching memories. It is a boosting
// signal, never a hard filter.
type Pillar struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	Category  PillarCategory `json:"category"`
	Name      string         `json:"name"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
