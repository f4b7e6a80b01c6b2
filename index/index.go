// Package index implements the append-only vector index: exact nearest-
// neighbor search over unit-norm embeddings via inner product, an
// ordinal-keyed metadata cache, and crash-safe snapshot persistence.
//
// Ordinal positions start at 0, increase monotonically and are never
// reused or reassigned. The metadata cache mirrors record fields at
// insertion time so queries can filter by owner without a store round
// trip; the record store stays authoritative for serving results.
package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrDimensionMismatch signals index/model version skew: a vector (or a
// persisted snapshot) does not match the configured dimension. It is fatal
// for the operation; vectors are never truncated or padded.
var ErrDimensionMismatch = errors.New("index: vector dimension mismatch")

// Entry is the cached metadata snapshot for one ordinal position.
type Entry struct {
	RecordID   string
	Owner      string
	Content    string
	Entities   []string
	Categories []string
	Importance float64
	CreatedAt  time.Time
}

// Hit is a single search result.
type Hit struct {
	// Position is the ordinal position of the matched vector.
	Position int

	// Score is the inner product with the query vector; for unit-norm
	// vectors this equals cosine similarity.
	Score float32
}

// Flat is an exact inner-product index over normalized vectors.
// All mutation goes through Append/Snapshot; reads may run concurrently.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	path    string
	vectors [][]float32
	entries []Entry
}

// Open loads the snapshot at path, or creates an empty index when no
// snapshot exists yet. An empty path keeps the index purely in memory
// (snapshots become no-ops). A persisted snapshot whose dimension differs
// from dim fails with ErrDimensionMismatch; the index must be rebuilt.
func Open(path string, dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: dimension must be positive, got %d", dim)
	}

	f := &Flat{dim: dim, path: path}
	if path == "" {
		return f, nil
	}

	data, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[INDEX] no snapshot at %s, starting empty (dim=%d)", path, dim)
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer data.Close()

	var snap snapshot
	if err := gob.NewDecoder(data).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Dim != dim {
		return nil, fmt.Errorf("%w: snapshot has dim %d, configured model has dim %d",
			ErrDimensionMismatch, snap.Dim, dim)
	}
	if len(snap.Vectors) != len(snap.Entries) {
		return nil, fmt.Errorf("corrupt snapshot: %d vectors but %d metadata entries",
			len(snap.Vectors), len(snap.Entries))
	}
	for i, v := range snap.Vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector at position %d has dim %d", ErrDimensionMismatch, i, len(v))
		}
	}

	f.vectors = snap.Vectors
	f.entries = snap.Entries
	log.Printf("[INDEX] restored %d vectors from %s", len(f.vectors), path)
	return f, nil
}

// Dimensions returns the fixed vector dimension of the index.
func (f *Flat) Dimensions() int {
	return f.dim
}

// Size returns the number of stored vectors.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Append stores a vector with its metadata entry and returns the assigned
// ordinal position (equal to the index size at insertion). It fails only
// on dimension mismatch.
func (f *Flat) Append(vec []float32, e Entry) (int, error) {
	if len(vec) != f.dim {
		return 0, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vec), f.dim)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pos := len(f.vectors)
	stored := make([]float32, f.dim)
	copy(stored, vec)
	f.vectors = append(f.vectors, stored)
	f.entries = append(f.entries, e)
	return pos, nil
}

// Search returns the k nearest vectors by inner product, descending.
// Fewer than k hits are returned when the index is smaller than k; an
// empty index yields no hits. Ties break toward the older position.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		var dot float32
		for j := range v {
			dot += v[j] * query[j]
		}
		hits[i] = Hit{Position: i, Score: dot}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Position < hits[b].Position
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Entry returns the cached metadata for a position.
func (f *Flat) Entry(pos int) (Entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pos < 0 || pos >= len(f.entries) {
		return Entry{}, false
	}
	return f.entries[pos], true
}

// snapshot is the persisted form: vectors and the metadata cache as one
// unit, so restore reconstructs all positions identically or not at all.
type snapshot struct {
	Dim     int
	Vectors [][]float32
	Entries []Entry
}

// Snapshot writes the full index state to the configured path. The write
// goes to a temp file first and is renamed into place, so a partial write
// is never observable as a restorable snapshot. No-op for in-memory
// indexes.
func (f *Flat) Snapshot() error {
	if f.path == "" {
		return nil
	}

	// Searches hold the read lock, so they observe either the pre- or
	// post-snapshot state, never a write in progress.
	f.mu.Lock()
	snap := snapshot{Dim: f.dim, Vectors: f.vectors, Entries: f.entries}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".index-*.tmp")
	if err != nil {
		f.mu.Unlock()
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	err = gob.NewEncoder(tmp).Encode(&snap)
	f.mu.Unlock()

	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
