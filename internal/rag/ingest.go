package rag

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Extractor turns raw file bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Embedder maps text to a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type IngestResult struct {
	ChunksStored int `json:"chunks_stored"`
}

// Ingestor runs the Received -> TextExtracted -> Chunked -> Embedded/Stored
// pipeline. Chunks already stored are kept when a later chunk fails.
type Ingestor struct {
	extractor Extractor
	chunker   *Chunker
	embedder  Embedder
	store     VectorStore
	cfg       Config
}

func NewIngestor(extractor Extractor, embedder Embedder, store VectorStore, cfg Config) (*Ingestor, error) {
	cfg = cfg.withDefaults()
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if embedder == nil || store == nil {
		return nil, Errorf(ErrConfig, "ingestor needs an embedder and a vector store")
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		cfg:       cfg,
	}, nil
}

// IngestFile extracts, chunks, embeds and stores one document.
func (i *Ingestor) IngestFile(ctx context.Context, data []byte) (*IngestResult, error) {
	if len(data) == 0 {
		return nil, Errorf(ErrValidation, "file is empty")
	}
	if i.extractor == nil {
		return nil, Errorf(ErrConfig, "no extractor configured")
	}
	ctxzap.Debug(ctx, "ingest received", zap.Int("bytes", len(data)))

	text, err := i.extractor.Extract(ctx, data)
	if err != nil {
		return nil, ensureKind(ErrExtraction, "extract text", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, Errorf(ErrExtraction, "no text could be extracted")
	}
	ctxzap.Debug(ctx, "ingest text extracted", zap.Int("runes", len([]rune(text))))

	return i.ingestChunks(ctx, i.chunker.Split(text))
}

// IngestText chunks and stores already extracted text.
func (i *Ingestor) IngestText(ctx context.Context, text string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Errorf(ErrValidation, "text is required")
	}
	return i.ingestChunks(ctx, i.chunker.Split(text))
}

// EmbedText embeds and stores text as a single chunk.
func (i *Ingestor) EmbedText(ctx context.Context, text string) (ChunkID, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", Errorf(ErrValidation, "text is required")
	}
	return i.embedAndStore(ctx, text)
}

func (i *Ingestor) ingestChunks(ctx context.Context, chunks []string) (*IngestResult, error) {
	total := len(chunks)
	if total == 0 {
		return nil, Errorf(ErrExtraction, "text produced no chunks")
	}
	ctxzap.Debug(ctx, "ingest chunked",
		zap.Int("chunks", total),
		zap.Int("chunk_size", i.chunker.Size()),
		zap.Int("chunk_overlap", i.chunker.Overlap()),
	)

	var (
		stored atomic.Int64
		failed atomic.Bool
		g      errgroup.Group
	)
	g.SetLimit(i.cfg.Workers)

	for idx, chunk := range chunks {
		if failed.Load() {
			break
		}
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			id, err := i.embedAndStore(ctx, chunk)
			if err != nil {
				failed.Store(true)
				ctxzap.Warn(ctx, "ingest chunk failed", zap.Int("chunk", idx), zap.Error(err))
				return err
			}
			stored.Add(1)
			ctxzap.Debug(ctx, "ingest chunk stored", zap.Int("chunk", idx), zap.String("id", string(id)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &IngestError{Stored: int(stored.Load()), Total: total, Err: err}
	}
	ctxzap.Info(ctx, "ingest completed", zap.Int("chunks_stored", total))
	return &IngestResult{ChunksStored: total}, nil
}

func (i *Ingestor) embedAndStore(ctx context.Context, text string) (ChunkID, error) {
	embedCtx, cancel := context.WithTimeout(ctx, i.cfg.EmbedTimeout)
	vec, err := i.embedder.Embed(embedCtx, text)
	cancel()
	if err != nil {
		return "", ensureKind(ErrEmbeddingProvider, "embed chunk", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, i.cfg.StoreTimeout)
	defer cancel()
	id, err := i.store.Store(storeCtx, text, vec)
	if err != nil {
		return "", ensureKind(ErrVectorStore, "store chunk", err)
	}
	return id, nil
}
