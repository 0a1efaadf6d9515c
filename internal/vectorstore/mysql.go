package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"gopherai-rag/internal/model"
	"gopherai-rag/internal/rag"
	"gopherai-rag/internal/repository"
)

const scanBatchSize = 500

// MySQLStore keeps chunks in MySQL and ranks them in process. Suitable for
// small corpora; use PgvectorStore when the index grows.
type MySQLStore struct {
	chunks    *repository.ChunkRepository
	dims      int
	batchSize int
}

func NewMySQLStore(chunks *repository.ChunkRepository, dims int) *MySQLStore {
	return &MySQLStore{chunks: chunks, dims: dims, batchSize: scanBatchSize}
}

func (s *MySQLStore) Store(ctx context.Context, content string, embedding []float32) (rag.ChunkID, error) {
	if err := rag.CheckDimensions(embedding, s.dims); err != nil {
		return "", err
	}
	chunk := &model.DocumentChunk{
		ChunkID: uuid.NewString(),
		Content: content,
	}
	if err := chunk.SetEmbedding(embedding); err != nil {
		return "", rag.Wrap(rag.ErrVectorStore, "encode embedding", err)
	}
	if err := s.chunks.Create(ctx, chunk); err != nil {
		return "", rag.Wrap(rag.ErrVectorStore, "insert chunk", err)
	}
	return rag.ChunkID(chunk.ChunkID), nil
}

func (s *MySQLStore) QueryTopK(ctx context.Context, query []float32, k int) ([]rag.Match, error) {
	if err := rag.CheckDimensions(query, s.dims); err != nil {
		return nil, err
	}

	var candidates []rag.Match
	err := s.chunks.ScanEmbedded(ctx, s.batchSize, func(batch []model.DocumentChunk) error {
		for i := range batch {
			vec := batch[i].EmbeddingVector()
			if len(vec) != len(query) {
				continue
			}
			candidates = append(candidates, rag.Match{
				ID:         rag.ChunkID(batch[i].ChunkID),
				Content:    batch[i].Content,
				Similarity: rag.CosineSimilarity(query, vec),
			})
		}
		return nil
	})
	if err != nil {
		return nil, rag.Wrap(rag.ErrVectorStore, "scan chunks", err)
	}
	return rag.TopK(candidates, k), nil
}
