package mock

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestDeterministic(t *testing.T) {
	e := New()
	a, err := e.Embed(context.Background(), "dinner at the restaurant")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(context.Background(), "dinner at the restaurant")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestUnitNorm(t *testing.T) {
	e := New()
	vec, err := e.Embed(context.Background(), "a walk in the park")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 384 {
		t.Fatalf("got %d dimensions, want 384", len(vec))
	}
	if math.Abs(cosine(vec, vec)-1) > 1e-4 {
		t.Errorf("norm^2 = %v, want 1", cosine(vec, vec))
	}
}

func TestSharedWordsCorrelate(t *testing.T) {
	e := New()
	ctx := context.Background()

	query, _ := e.Embed(ctx, "restaurant")
	related, _ := e.Embed(ctx, "dinner at the restaurant")
	unrelated, _ := e.Embed(ctx, "bicycle repair manual")

	if cosine(query, related) <= cosine(query, unrelated) {
		t.Errorf("shared-word similarity %v not above unrelated %v",
			cosine(query, related), cosine(query, unrelated))
	}
}

func TestPunctuationAndCaseInsensitive(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, _ := e.Embed(ctx, "Hello, World!")
	b, _ := e.Embed(ctx, "hello world")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs after normalization: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCustomDimensions(t *testing.T) {
	e := NewWithDimensions(64)
	if e.Dimensions() != 64 {
		t.Fatalf("Dimensions = %d, want 64", e.Dimensions())
	}
	vec, err := e.Embed(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 64 {
		t.Errorf("got %d dimensions, want 64", len(vec))
	}
}
