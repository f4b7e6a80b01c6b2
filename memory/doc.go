// Package memory defines the core types and collaborator contracts for the
// memory engine.
//
// A memory is a free-text (optionally photo-augmented) record owned by a
// single user. On ingestion it is annotated with extracted features
// (entities, emotions, categories, importance), embedded into a fixed-
// dimension vector and appended to the vector index; retrieval ranks
// memories by cosine similarity blended with lexical, entity, category and
// pillar boosts.
//
// Architecture:
//   - Embedder: text-to-vector conversion (mock for tests, ONNX for local,
//     OpenAI for API-based deployments)
//   - Tagger / Sentiment / Vision: feature-signal collaborators; absent or
//     failing collaborators degrade to empty or neutral signal
//   - RecordStore / PillarStore: durable relational storage, the source of
//     truth for everything except raw vectors
//
// The engine package orchestrates these; the index package owns the
// vector side.
package memory
