// Package engine orchestrates memory ingestion and retrieval.
//
// Ingestion: describe photos -> extract features -> embed -> persist the
// record -> append to the vector index -> snapshot. Query: embed the
// query -> over-fetch nearest neighbors -> hydrate owner-scoped records
// -> apply ranking boosts -> threshold -> truncate.
//
// The record insert happens before the index append, so a storage failure
// never leaves an orphaned index entry; the append itself can only fail on
// a dimension mismatch, which is ruled out at construction time. One mutex
// serializes the whole mutation scope so ordinal assignment can never
// interleave.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/memoriahq/memoria-go/extract"
	"github.com/memoriahq/memoria-go/index"
	"github.com/memoriahq/memoria-go/memory"
)

// DefaultMinScore is the minimum final relevance score a search result
// must reach to be returned.
const DefaultMinScore = 0.25

// overFetchFactor compensates for post-filtering by owner and for
// threshold rejection: the index is asked for limit*overFetchFactor
// neighbors, capped at the index size.
const overFetchFactor = 5

var (
	// ErrEmbedding reports that the embedding collaborator failed.
	// Ingestion and query cannot proceed without it.
	ErrEmbedding = errors.New("engine: embedding collaborator failed")

	// ErrStorage reports a record or pillar store failure.
	ErrStorage = errors.New("engine: record store failed")

	// ErrEmptyMemory is returned when a memory has neither text nor photos.
	ErrEmptyMemory = errors.New("engine: memory needs text or at least one photo")
)

// Engine coordinates the embedder, the feature extractor, the vector
// index and the record store. It is safe for concurrent use.
type Engine struct {
	embedder  memory.Embedder
	extractor *extract.Extractor
	idx       *index.Flat
	records   memory.RecordStore
	pillars   memory.PillarStore
	vision    memory.Vision // optional

	// ingestMu serializes the full mutation scope: extract, embed,
	// ordinal assignment, record insert, index append, snapshot.
	ingestMu chanMutex
}

// chanMutex is a context-aware mutex so blocked ingestions still honor
// cancellation while waiting for the collaborator-heavy critical section.
type chanMutex chan struct{}

func (m chanMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() { <-m }

// Option configures the engine.
type Option func(*Engine)

// WithVision sets the image-entity collaborator. Without it, photos are
// stored as attachments but contribute no image-derived signal.
func WithVision(v memory.Vision) Option {
	return func(e *Engine) {
		e.vision = v
	}
}

// New creates an engine. The embedder's dimension must match the index's;
// a mismatch means the persisted index belongs to a different model
// version and must be rebuilt.
func New(embedder memory.Embedder, extractor *extract.Extractor, idx *index.Flat,
	records memory.RecordStore, pillars memory.PillarStore, opts ...Option) (*Engine, error) {

	if embedder.Dimensions() != idx.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces dim %d, index holds dim %d",
			index.ErrDimensionMismatch, embedder.Dimensions(), idx.Dimensions())
	}

	e := &Engine{
		embedder:  embedder,
		extractor: extractor,
		idx:       idx,
		records:   records,
		pillars:   pillars,
		ingestMu:  make(chanMutex, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PhotoInput references an already-uploaded photo.
type PhotoInput struct {
	URL          string
	ProvenanceID string
	Metadata     map[string]string
}

// AddMemoryInput is one ingestion request.
type AddMemoryInput struct {
	Text   string
	Owner  string
	Photos []PhotoInput
}

// AddMemory ingests one memory and returns the new record's ID.
func (e *Engine) AddMemory(ctx context.Context, in AddMemoryInput) (string, error) {
	text := strings.TrimSpace(in.Text)
	if in.Owner == "" {
		return "", fmt.Errorf("engine: owner is required")
	}
	if text == "" && len(in.Photos) == 0 {
		return "", ErrEmptyMemory
	}

	userPillars, err := e.pillars.Pillars(ctx, in.Owner)
	if err != nil {
		return "", fmt.Errorf("%w: load pillars: %v", ErrStorage, err)
	}

	imageEntities, imageLabels, imageContext := e.describePhotos(ctx, in.Photos)

	// A photo-only memory gets a synthesized description as its content.
	if text == "" {
		text = synthesizeDescription(imageEntities)
	}

	// The image context influences only the vector and the extracted
	// features; stored content stays the user's text.
	searchable := strings.TrimSpace(text + " " + imageContext)

	if err := e.ingestMu.lock(ctx); err != nil {
		return "", err
	}
	defer e.ingestMu.unlock()

	features := e.extractor.Extract(ctx, extract.Input{
		Text:          text,
		ImageEntities: imageEntities,
		ImageLabels:   imageLabels,
		Pillars:       userPillars,
		PhotoCount:    len(in.Photos),
	})

	vec, err := e.embedder.Embed(ctx, searchable)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	vec = normalize(vec)
	if len(vec) != e.idx.Dimensions() {
		return "", fmt.Errorf("%w: embedder returned dim %d", index.ErrDimensionMismatch, len(vec))
	}

	now := time.Now().UTC()
	rec := &memory.MemoryRecord{
		Owner:          in.Owner,
		Content:        text,
		Entities:       features.Entities,
		Categories:     features.Categories,
		Emotions:       features.Emotions,
		Importance:     features.Importance,
		CreatedAt:      now,
		VectorPosition: e.idx.Size(),
		Photos:         photosFromInput(in.Photos, now),
	}

	// Record first: a failed insert leaves the index untouched, so the
	// bijection between records and index entries holds for every
	// position reachable by search.
	id, err := e.records.InsertMemory(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("%w: insert memory: %v", ErrStorage, err)
	}

	pos, err := e.idx.Append(vec, index.Entry{
		RecordID:   id,
		Owner:      in.Owner,
		Content:    text,
		Entities:   features.Entities,
		Categories: features.Categories,
		Importance: features.Importance,
		CreatedAt:  now,
	})
	if err != nil {
		// Only reachable on dimension skew, which construction rules out.
		return "", fmt.Errorf("append vector for record %s: %w", id, err)
	}
	if pos != rec.VectorPosition {
		return "", fmt.Errorf("ordinal drift: expected position %d, index assigned %d", rec.VectorPosition, pos)
	}

	if err := e.idx.Snapshot(); err != nil {
		// In-memory state is consistent and the record is durable; the
		// next successful snapshot rewrites the full index.
		log.Printf("[ENGINE] snapshot failed after ingesting %s: %v", id, err)
	}

	log.Printf("[ENGINE] added memory %s for owner %s (position=%d, categories=%v, importance=%.2f)",
		id, in.Owner, pos, features.Categories, features.Importance)
	return id, nil
}

// describePhotos runs the vision collaborator over each photo,
// accumulating successes and skipping failures; one bad photo never
// aborts the ingestion. When photos exist, the returned context string is
// never empty so embedding input cannot be empty.
func (e *Engine) describePhotos(ctx context.Context, photos []PhotoInput) (entities, labels []string, imageContext string) {
	if len(photos) == 0 {
		return nil, nil, ""
	}

	var parts []string
	if e.vision != nil {
		for _, p := range photos {
			desc, err := e.vision.Describe(ctx, p.URL)
			if err != nil {
				log.Printf("[ENGINE] skipping photo %s: %v", p.URL, err)
				continue
			}
			entities = append(entities, desc.Objects...)
			labels = append(labels, desc.Labels...)
			if len(desc.Objects) > 0 {
				parts = append(parts, "Photo shows "+strings.Join(desc.Objects, ", "))
			}
			if desc.Text != "" {
				parts = append(parts, "Text in photo: "+desc.Text)
			}
		}
	}

	imageContext = strings.Join(parts, ". ")
	if imageContext == "" {
		imageContext = "A photo"
	}
	return entities, labels, imageContext
}

// synthesizeDescription builds content for a photo-only memory from the
// detected objects, Oxford-style.
func synthesizeDescription(objects []string) string {
	switch len(objects) {
	case 0:
		return "A photo"
	case 1:
		return "A photo of " + objects[0]
	case 2:
		return "A photo of " + objects[0] + " and " + objects[1]
	default:
		return "A photo of " + strings.Join(objects[:len(objects)-1], ", ") + ", and " + objects[len(objects)-1]
	}
}

func photosFromInput(in []PhotoInput, created time.Time) []memory.Photo {
	if len(in) == 0 {
		return nil
	}
	photos := make([]memory.Photo, len(in))
	for i, p := range in {
		photos[i] = memory.Photo{
			URL:          p.URL,
			ProvenanceID: p.ProvenanceID,
			Metadata:     p.Metadata,
			CreatedAt:    created,
		}
	}
	return photos
}

// SearchInput is one retrieval request.
type SearchInput struct {
	Query string
	Owner string

	// Limit caps the result count; defaults to 10.
	Limit int

	// MinScore is the minimum final relevance score. The zero value means
	// DefaultMinScore; negative values are honored as-is, so -1 accepts
	// every match.
	MinScore float64
}

// Result is a retrieved record annotated with its final relevance score.
type Result struct {
	Record *memory.MemoryRecord

	// SimilarityScore is the boosted cosine similarity, capped at 1.0.
	SimilarityScore float64
}

// SearchMemories returns the owner's most relevant memories for the
// query, ranked by boosted similarity. No matches is not an error: the
// result is simply empty.
func (e *Engine) SearchMemories(ctx context.Context, in SearchInput) ([]Result, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("engine: query is required")
	}
	if in.Owner == "" {
		return nil, fmt.Errorf("engine: owner is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	minScore := in.MinScore
	if minScore == 0 {
		minScore = DefaultMinScore
	}

	userPillars, err := e.pillars.Pillars(ctx, in.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: load pillars: %v", ErrStorage, err)
	}

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	qvec = normalize(qvec)

	size := e.idx.Size()
	if size == 0 {
		return []Result{}, nil
	}
	k := limit * overFetchFactor
	if k > size {
		k = size
	}

	hits, err := e.idx.Search(qvec, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	queryLower := strings.ToLower(query)
	seen := make(map[string]bool)
	results := make([]Result, 0, limit)

	for _, h := range hits {
		entry, ok := e.idx.Entry(h.Position)
		if !ok || entry.Owner != in.Owner || seen[entry.RecordID] {
			continue
		}
		seen[entry.RecordID] = true

		rec, err := e.records.GetMemory(ctx, in.Owner, entry.RecordID)
		if errors.Is(err, memory.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: hydrate %s: %v", ErrStorage, entry.RecordID, err)
		}

		score := boostScore(float64(h.Score), queryLower, rec, userPillars)
		if score < minScore {
			continue
		}
		results = append(results, Result{Record: rec, SimilarityScore: score})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].SimilarityScore > results[b].SimilarityScore
	})
	if len(results) > limit {
		results = results[:limit]
	}

	log.Printf("[ENGINE] search %q for owner %s: %d candidates, %d results",
		query, in.Owner, len(hits), len(results))
	return results, nil
}

// RecentMemories lists the owner's newest memories first.
func (e *Engine) RecentMemories(ctx context.Context, owner string, limit int) ([]*memory.MemoryRecord, error) {
	recs, err := e.records.RecentMemories(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return recs, nil
}

// MemoryClusters groups the owner's memories by category, each group
// ordered by importance then recency. A memory with several categories
// appears in each of its groups.
func (e *Engine) MemoryClusters(ctx context.Context, owner string) (map[string][]*memory.MemoryRecord, error) {
	recs, err := e.records.MemoriesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	clusters := make(map[string][]*memory.MemoryRecord)
	for _, rec := range recs {
		categories := rec.Categories
		if len(categories) == 0 {
			categories = []string{extract.DefaultCategory}
		}
		for _, c := range categories {
			clusters[c] = append(clusters[c], rec)
		}
	}
	return clusters, nil
}

// TotalMemories reports the index size, for health reporting.
func (e *Engine) TotalMemories() int {
	return e.idx.Size()
}

// SavePillars persists pillars for the owner.
func (e *Engine) SavePillars(ctx context.Context, owner string, drafts []memory.PillarDraft) ([]memory.Pillar, error) {
	pillars, err := e.pillars.SavePillars(ctx, owner, drafts)
	if err != nil {
		return nil, err
	}
	log.Printf("[ENGINE] saved %d pillars for owner %s", len(pillars), owner)
	return pillars, nil
}

// Pillars lists the owner's pillars grouped by category.
func (e *Engine) Pillars(ctx context.Context, owner string) (map[memory.PillarCategory][]memory.Pillar, error) {
	pillars, err := e.pillars.Pillars(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	grouped := map[memory.PillarCategory][]memory.Pillar{
		memory.PillarPeople:     {},
		memory.PillarInterests:  {},
		memory.PillarLifeEvents: {},
	}
	for _, p := range pillars {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	return grouped, nil
}

// normalize scales a vector to unit L2 norm. Zero vectors pass through.
func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * scale
	}
	return out
}
