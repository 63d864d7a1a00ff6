package embeddingcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/photo-caption/internal/domain/faq"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS faq_embedding_sets (
	id          SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	fingerprint TEXT NOT NULL,
	model       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS faq_embeddings (
	position  INTEGER PRIMARY KEY,
	embedding vector NOT NULL
);
`

// PostgresStore keeps one row per corpus entry in a pgvector column next to
// a single metadata row. Saves replace both inside one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

func (s *PostgresStore) Load(ctx context.Context) (faq.EmbeddingCache, bool, error) {
	var cache faq.EmbeddingCache
	err := s.pool.QueryRow(ctx, `
		SELECT fingerprint, model, created_at
		FROM faq_embedding_sets
		WHERE id = 1
	`).Scan(&cache.Fingerprint, &cache.Model, &cache.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return faq.EmbeddingCache{}, false, nil
		}
		return faq.EmbeddingCache{}, false, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT position, embedding::text
		FROM faq_embeddings
		ORDER BY position ASC
	`)
	if err != nil {
		return faq.EmbeddingCache{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			position int
			raw      string
		)
		if err := rows.Scan(&position, &raw); err != nil {
			return faq.EmbeddingCache{}, false, err
		}
		if position != len(cache.Vectors) {
			return faq.EmbeddingCache{}, false, fmt.Errorf("embedding rows not contiguous at position %d", position)
		}
		vec, err := parseVector(raw)
		if err != nil {
			return faq.EmbeddingCache{}, false, err
		}
		cache.Vectors = append(cache.Vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return faq.EmbeddingCache{}, false, err
	}
	return cache, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, cache faq.EmbeddingCache) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM faq_embeddings`); err != nil {
		return err
	}
	createdAt := cache.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO faq_embedding_sets (id, fingerprint, model, created_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET fingerprint = EXCLUDED.fingerprint, model = EXCLUDED.model, created_at = EXCLUDED.created_at
	`, cache.Fingerprint, cache.Model, createdAt); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, vec := range cache.Vectors {
		batch.Queue(`
			INSERT INTO faq_embeddings (position, embedding)
			VALUES ($1, $2)
		`, i, pgvector.NewVector(vec))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// parseVector reads the pgvector text form "[1,2,3]".
func parseVector(raw string) ([]float32, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		numStr := strings.TrimSpace(p)
		if numStr == "" {
			continue
		}
		f, err := strconv.ParseFloat(numStr, 32)
		if err != nil {
			return nil, fmt.Errorf("parse embedding value %q: %w", numStr, err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

var _ faq.CacheStore = (*PostgresStore)(nil)
