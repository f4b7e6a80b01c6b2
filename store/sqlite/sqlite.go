// Package sqlite implements the durable record and pillar stores on
// SQLite. It is the source of truth for all memory fields except raw
// vectors, which live in the index snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/memoriahq/memoria-go/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
    id              TEXT PRIMARY KEY,
    owner           TEXT NOT NULL,
    content         TEXT NOT NULL,
    entities        TEXT NOT NULL,
    categories      TEXT NOT NULL,
    emotions        TEXT NOT NULL,
    importance      REAL NOT NULL,
    vector_position INTEGER NOT NULL,
    created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner);
CREATE INDEX IF NOT EXISTS idx_memories_owner_created ON memories(owner, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_vector_position ON memories(vector_position);

CREATE TABLE IF NOT EXISTS memory_photos (
    id            TEXT PRIMARY KEY,
    memory_id     TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
    position      INTEGER NOT NULL,
    url           TEXT NOT NULL,
    provenance_id TEXT,
    metadata      TEXT,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_photos_memory ON memory_photos(memory_id);

CREATE TABLE IF NOT EXISTS user_pillars (
    id         TEXT PRIMARY KEY,
    owner      TEXT NOT NULL,
    category   TEXT NOT NULL,
    name       TEXT NOT NULL,
    avatar_url TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_pillars_owner ON user_pillars(owner);
`

// Store implements memory.RecordStore and memory.PillarStore on a single
// SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes
	// writers; reads in this core are light.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Printf("[SQLITE] opened %s", path)
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertMemory persists a record with its photos in one transaction and
// returns the generated record ID.
func (s *Store) InsertMemory(ctx context.Context, rec *memory.MemoryRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	entities, err := json.Marshal(emptyAsList(rec.Entities))
	if err != nil {
		return "", fmt.Errorf("marshal entities: %w", err)
	}
	categories, err := json.Marshal(emptyAsList(rec.Categories))
	if err != nil {
		return "", fmt.Errorf("marshal categories: %w", err)
	}
	emotions, err := json.Marshal(rec.Emotions)
	if err != nil {
		return "", fmt.Errorf("marshal emotions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (id, owner, content, entities, categories, emotions, importance, vector_position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.Content, string(entities), string(categories),
		string(emotions), rec.Importance, rec.VectorPosition, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}

	for i := range rec.Photos {
		p := &rec.Photos[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = rec.CreatedAt
		}
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal photo metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memory_photos (id, memory_id, position, url, provenance_id, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, rec.ID, i, p.URL, p.ProvenanceID, string(meta), p.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return "", fmt.Errorf("insert photo: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return rec.ID, nil
}

// GetMemory fetches one record with its photos, scoped to the owner.
func (s *Store) GetMemory(ctx context.Context, owner, id string) (*memory.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, content, entities, categories, emotions, importance, vector_position, created_at
		FROM memories WHERE id = ? AND owner = ?`, id, owner)

	rec, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}

	if err := s.attachPhotos(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecentMemories lists the owner's newest records first, photos attached.
func (s *Store) RecentMemories(ctx context.Context, owner string, limit int) ([]*memory.MemoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.listMemories(ctx, `
		SELECT id, owner, content, entities, categories, emotions, importance, vector_position, created_at
		FROM memories WHERE owner = ?
		ORDER BY created_at DESC, id LIMIT ?`, owner, limit)
}

// MemoriesByOwner lists all records ordered by importance then recency.
func (s *Store) MemoriesByOwner(ctx context.Context, owner string) ([]*memory.MemoryRecord, error) {
	return s.listMemories(ctx, `
		SELECT id, owner, content, entities, categories, emotions, importance, vector_position, created_at
		FROM memories WHERE owner = ?
		ORDER BY importance DESC, created_at DESC, id`, owner)
}

func (s *Store) listMemories(ctx context.Context, query string, args ...any) ([]*memory.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var recs []*memory.MemoryRecord
	for rows.Next() {
		rec, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	for _, rec := range recs {
		if err := s.attachPhotos(ctx, rec); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (s *Store) attachPhotos(ctx context.Context, rec *memory.MemoryRecord) error {
	// position preserves the caller's attachment order; photos of one
	// memory usually share a timestamp.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, provenance_id, metadata, created_at
		FROM memory_photos WHERE memory_id = ?
		ORDER BY position`, rec.ID)
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p memory.Photo
		var provenance, meta sql.NullString
		var created string
		if err := rows.Scan(&p.ID, &p.URL, &provenance, &meta, &created); err != nil {
			return fmt.Errorf("scan photo: %w", err)
		}
		p.ProvenanceID = provenance.String
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &p.Metadata); err != nil {
				return fmt.Errorf("unmarshal photo metadata: %w", err)
			}
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		rec.Photos = append(rec.Photos, p)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*memory.MemoryRecord, error) {
	var rec memory.MemoryRecord
	var entities, categories, emotions, created string

	err := row.Scan(&rec.ID, &rec.Owner, &rec.Content, &entities, &categories,
		&emotions, &rec.Importance, &rec.VectorPosition, &created)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(entities), &rec.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &rec.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	if err := json.Unmarshal([]byte(emotions), &rec.Emotions); err != nil {
		return nil, fmt.Errorf("unmarshal emotions: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}

// SavePillars creates pillars for the owner in one transaction.
func (s *Store) SavePillars(ctx context.Context, owner string, drafts []memory.PillarDraft) ([]memory.Pillar, error) {
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	pillars := make([]memory.Pillar, 0, len(drafts))
	for _, d := range drafts {
		p := memory.Pillar{
			ID:        uuid.New().String(),
			Owner:     owner,
			Category:  d.Category,
			Name:      d.Name,
			AvatarURL: d.AvatarURL,
			CreatedAt: now,
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_pillars (id, owner, category, name, avatar_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Owner, string(p.Category), p.Name, p.AvatarURL, p.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("insert pillar: %w", err)
		}
		pillars = append(pillars, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return pillars, nil
}

// Pillars lists the owner's pillars ordered by category then creation.
func (s *Store) Pillars(ctx context.Context, owner string) ([]memory.Pillar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, category, name, avatar_url, created_at
		FROM user_pillars WHERE owner = ?
		ORDER BY category, created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list pillars: %w", err)
	}
	defer rows.Close()

	var pillars []memory.Pillar
	for rows.Next() {
		var p memory.Pillar
		var category, created string
		var avatar sql.NullString
		if err := rows.Scan(&p.ID, &p.Owner, &category, &p.Name, &avatar, &created); err != nil {
			return nil, fmt.Errorf("scan pillar: %w", err)
		}
		p.Category = memory.PillarCategory(category)
		p.AvatarURL = avatar.String
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		pillars = append(pillars, p)
	}
	return pillars, rows.Err()
}

// emptyAsList keeps JSON columns as [] instead of null for nil slices.
func emptyAsList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
