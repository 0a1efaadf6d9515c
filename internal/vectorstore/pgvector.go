package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"gopherai-rag/internal/rag"
)

// PgvectorStore keeps chunks in Postgres and ranks them with the pgvector
// cosine distance operator. The pool must have pgvector types registered.
type PgvectorStore struct {
	pool *pgxpool.Pool
	dims int
}

func NewPgvectorStore(pool *pgxpool.Pool, dims int) *PgvectorStore {
	return &PgvectorStore{pool: pool, dims: dims}
}

// EnsureSchema creates the extension, table and index when missing.
func (s *PgvectorStore) EnsureSchema(ctx context.Context) error {
	if s.dims <= 0 {
		return errors.New("pgvector store needs positive dimensions")
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id         BIGSERIAL PRIMARY KEY,
			chunk_id   UUID NOT NULL UNIQUE,
			content    TEXT NOT NULL,
			embedding  vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dims),
		`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure pgvector schema failed: %w", err)
		}
	}
	return nil
}

func (s *PgvectorStore) Store(ctx context.Context, content string, embedding []float32) (rag.ChunkID, error) {
	if err := rag.CheckDimensions(embedding, s.dims); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO document_chunks (chunk_id, content, embedding) VALUES ($1::uuid, $2, $3)`,
		id, content, pgvector.NewVector(embedding),
	)
	if err != nil {
		return "", rag.Wrap(rag.ErrVectorStore, "insert chunk", err)
	}
	return rag.ChunkID(id), nil
}

func (s *PgvectorStore) QueryTopK(ctx context.Context, query []float32, k int) ([]rag.Match, error) {
	if err := rag.CheckDimensions(query, s.dims); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []rag.Match{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id::text, content, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, id
		LIMIT $2`,
		pgvector.NewVector(query), k,
	)
	if err != nil {
		return nil, rag.Wrap(rag.ErrVectorStore, "query chunks", err)
	}
	defer rows.Close()

	matches := make([]rag.Match, 0, k)
	for rows.Next() {
		var (
			id string
			m  rag.Match
		)
		if err := rows.Scan(&id, &m.Content, &m.Similarity); err != nil {
			return nil, rag.Wrap(rag.ErrVectorStore, "scan chunk", err)
		}
		m.ID = rag.ChunkID(id)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, rag.Wrap(rag.ErrVectorStore, "iterate chunks", err)
	}
	return matches, nil
}
