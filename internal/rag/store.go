package rag

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultDimensions = 1536

type ChunkID string

// Match is one retrieval hit.
type Match struct {
	ID         ChunkID `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// VectorStore persists (content, embedding) pairs and ranks them by cosine similarity.
type VectorStore interface {
	Store(ctx context.Context, content string, embedding []float32) (ChunkID, error)
	QueryTopK(ctx context.Context, query []float32, k int) ([]Match, error)
}

// CosineSimilarity returns 0 for empty, mismatched or zero-norm vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK keeps the k best matches of an insertion-ordered candidate list,
// breaking ties by that order.
func TopK(candidates []Match, k int) []Match {
	if k <= 0 || len(candidates) == 0 {
		return []Match{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Match, k)
	copy(out, candidates[:k])
	return out
}

// CheckDimensions validates an embedding against a store's configured size.
func CheckDimensions(embedding []float32, dims int) error {
	if len(embedding) == 0 {
		return Errorf(ErrVectorStore, "embedding is empty")
	}
	if dims > 0 && len(embedding) != dims {
		return Errorf(ErrVectorStore, "embedding has %d dimensions, store expects %d", len(embedding), dims)
	}
	return nil
}

type memoryChunk struct {
	id        ChunkID
	content   string
	embedding []float32
	createdAt time.Time
}

// MemoryStore keeps chunks in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	dims   int
	chunks []memoryChunk
}

func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{dims: dims}
}

func (s *MemoryStore) Store(ctx context.Context, content string, embedding []float32) (ChunkID, error) {
	if err := ctx.Err(); err != nil {
		return "", Wrap(ErrVectorStore, "store chunk", err)
	}
	if err := CheckDimensions(embedding, s.dims); err != nil {
		return "", err
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	chunk := memoryChunk{
		id:        ChunkID(uuid.NewString()),
		content:   content,
		embedding: vec,
		createdAt: time.Now(),
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	s.mu.Unlock()
	return chunk.id, nil
}

func (s *MemoryStore) QueryTopK(ctx context.Context, query []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(ErrVectorStore, "query chunks", err)
	}
	if err := CheckDimensions(query, s.dims); err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]Match, 0, len(s.chunks))
	for _, c := range s.chunks {
		if len(c.embedding) == 0 {
			continue
		}
		candidates = append(candidates, Match{
			ID:         c.id,
			Content:    c.content,
			Similarity: CosineSimilarity(query, c.embedding),
		})
	}
	s.mu.RUnlock()

	return TopK(candidates, k), nil
}

// Len returns the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
