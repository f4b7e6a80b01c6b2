package index

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

// unitVec builds a dim-sized unit vector pointing along axis hot.
func unitVec(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestAppendAssignsSequentialPositions(t *testing.T) {
	idx, err := Open("", 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for want := 0; want < 5; want++ {
		pos, err := idx.Append(unitVec(4, want%4), Entry{RecordID: "r", Owner: "u1"})
		if err != nil {
			t.Fatalf("Append #%d failed: %v", want, err)
		}
		if pos != want {
			t.Errorf("Append #%d assigned position %d, want %d", want, pos, want)
		}
		if idx.Size() != want+1 {
			t.Errorf("Size after append #%d = %d, want %d", want, idx.Size(), want+1)
		}
	}
}

func TestAppendDimensionMismatch(t *testing.T) {
	idx, err := Open("", 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err = idx.Append(unitVec(3, 0), Entry{})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Append with wrong dimension: got %v, want ErrDimensionMismatch", err)
	}
	if idx.Size() != 0 {
		t.Errorf("failed append mutated the index: size %d", idx.Size())
	}
}

func TestSearchOrdersByScoreDescending(t *testing.T) {
	idx, err := Open("", 2)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Angles at 0, 45 and 90 degrees from the query axis.
	cos45 := float32(math.Sqrt2 / 2)
	vectors := [][]float32{
		{0, 1},
		{1, 0},
		{cos45, cos45},
	}
	for i, v := range vectors {
		if _, err := idx.Append(v, Entry{}); err != nil {
			t.Fatalf("Append #%d failed: %v", i, err)
		}
	}

	hits, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}

	wantOrder := []int{1, 2, 0}
	for i, want := range wantOrder {
		if hits[i].Position != want {
			t.Errorf("hit %d: position %d, want %d", i, hits[i].Position, want)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending: %v then %v", hits[i-1].Score, hits[i].Score)
		}
	}
	if math.Abs(float64(hits[0].Score)-1) > 1e-6 {
		t.Errorf("exact match score = %v, want 1", hits[0].Score)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, err := Open("", 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	hits, err := idx.Search(unitVec(4, 0), 10)
	if err != nil {
		t.Fatalf("Search on empty index failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("empty index returned %d hits", len(hits))
	}
}

func TestSearchReturnsFewerThanK(t *testing.T) {
	idx, err := Open("", 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := idx.Append(unitVec(4, i), Entry{}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	hits, err := idx.Search(unitVec(4, 0), 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want 2", len(hits))
	}
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	idx, err := Open("", 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := idx.Search(unitVec(3, 0), 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	idx, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	entries := []Entry{
		{RecordID: "a", Owner: "u1", Content: "first", Categories: []string{"food"}, Importance: 0.5},
		{RecordID: "b", Owner: "u2", Content: "second", Entities: []string{"Mom"}, Importance: 0.7},
		{RecordID: "c", Owner: "u1", Content: "third", Importance: 0.3},
	}
	for i, e := range entries {
		if _, err := idx.Append(unitVec(3, i), e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := idx.Snapshot(); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	query := []float32{0.2, 0.5, 0.8}
	before, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("Search before restore failed: %v", err)
	}

	restored, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open after snapshot failed: %v", err)
	}
	if restored.Size() != idx.Size() {
		t.Fatalf("restored size %d, want %d", restored.Size(), idx.Size())
	}

	after, err := restored.Search(query, 3)
	if err != nil {
		t.Fatalf("Search after restore failed: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("restored search returned %d hits, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Position != before[i].Position || after[i].Score != before[i].Score {
			t.Errorf("hit %d: got (%d, %v), want (%d, %v)",
				i, after[i].Position, after[i].Score, before[i].Position, before[i].Score)
		}
	}

	for i, want := range entries {
		got, ok := restored.Entry(i)
		if !ok {
			t.Fatalf("restored entry %d missing", i)
		}
		if got.RecordID != want.RecordID || got.Owner != want.Owner || got.Content != want.Content {
			t.Errorf("restored entry %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestOpenRejectsDimensionSkew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	idx, err := Open(path, 3)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := idx.Append(unitVec(3, 0), Entry{RecordID: "a"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := idx.Snapshot(); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if _, err := Open(path, 4); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Open with skewed dimension: got %v, want ErrDimensionMismatch", err)
	}
}

func TestEntryOutOfRange(t *testing.T) {
	idx, err := Open("", 4)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := idx.Entry(0); ok {
		t.Error("Entry(0) on empty index reported ok")
	}
	if _, ok := idx.Entry(-1); ok {
		t.Error("Entry(-1) reported ok")
	}
}
