package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gopherai-rag/internal/ai"
	"gopherai-rag/internal/app"
	"gopherai-rag/internal/config"
	"gopherai-rag/internal/pkg/pdfextract"
	"gopherai-rag/internal/pkg/retry"
	"gopherai-rag/internal/platform/postgres"
	"gopherai-rag/internal/rag"
	"gopherai-rag/internal/repository"
	"gopherai-rag/internal/vectorstore"
)

// Core is the retrieval pipeline shared by the HTTP server and ragctl.
type Core struct {
	AI        *ai.Client
	Store     rag.VectorStore
	Ingestor  *rag.Ingestor
	Responder *rag.Responder
	// Products is nil when no MySQL connection is available, which disables
	// the product tool.
	Products *app.ProductService
	Postgres *pgxpool.Pool
}

// NewCore builds the pipeline on the configured vector backend. db may be nil
// only for the memory backend.
func NewCore(ctx context.Context, cfg *config.Config, log *zap.Logger, db *gorm.DB) (*Core, error) {
	client, err := ai.NewClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		ChatModel:      cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Dimensions:     cfg.LLM.Dimensions,
		Temperature:    ai.Float32(cfg.LLM.Temperature),
		TopP:           ai.Float32(cfg.LLM.TopP),
		EmbedTimeout:   cfg.LLM.EmbedTimeout(),
		ChatTimeout:    cfg.LLM.ChatTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("create llm client failed: %w", err)
	}

	core := &Core{AI: client}
	switch cfg.RAG.VectorBackend {
	case config.VectorBackendMemory:
		core.Store = rag.NewMemoryStore(cfg.LLM.Dimensions)
	case config.VectorBackendMySQL:
		if db == nil {
			return nil, fmt.Errorf("vector backend %q needs mysql", cfg.RAG.VectorBackend)
		}
		core.Store = vectorstore.NewMySQLStore(repository.NewChunkRepository(db), cfg.LLM.Dimensions)
	case config.VectorBackendPgvector:
		pool, err := connectPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		store := vectorstore.NewPgvectorStore(pool, cfg.LLM.Dimensions)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		core.Postgres = pool
		core.Store = store
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.RAG.VectorBackend)
	}

	var finder rag.ProductFinder
	if db != nil {
		core.Products = app.NewProductService(repository.NewProductRepository(db))
		finder = core.Products
	}

	ragCfg := rag.Config{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		TopK:         cfg.RAG.TopK,
		Workers:      cfg.RAG.Workers,
		EmbedTimeout: cfg.LLM.EmbedTimeout(),
		StoreTimeout: cfg.RAG.StoreTimeout(),
		ModelTimeout: cfg.LLM.ChatTimeout(),
		ToolTimeout:  cfg.RAG.ToolTimeout(),
		Temperature:  ai.Float32(cfg.LLM.Temperature),
		TopP:         ai.Float32(cfg.LLM.TopP),
	}
	if core.Ingestor, err = rag.NewIngestor(pdfextract.Extractor{}, client, core.Store, ragCfg); err != nil {
		core.Close()
		return nil, err
	}
	if core.Responder, err = rag.NewResponder(client, core.Store, client, finder, ragCfg); err != nil {
		core.Close()
		return nil, err
	}

	log.Info("retrieval pipeline ready",
		zap.String("vector_backend", cfg.RAG.VectorBackend),
		zap.String("chat_model", cfg.LLM.Model),
		zap.String("embedding_model", cfg.LLM.EmbeddingModel),
		zap.Int("dimensions", cfg.LLM.Dimensions),
		zap.Bool("product_tool", finder != nil),
	)
	return core, nil
}

func (c *Core) Close() {
	if c.Postgres != nil {
		c.Postgres.Close()
		c.Postgres = nil
	}
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	rc := RetryConfig(cfg)
	if _, err := retry.Connect(ctx, log, "postgres", rc, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, postgres.EnsureVectorExtension(ctx, cfg.Postgres.URL)
	}); err != nil {
		return nil, err
	}
	return retry.Connect(ctx, log, "postgres", rc, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.New(ctx, cfg.Postgres.URL, postgres.Options{
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
	})
}

// RetryConfig converts the retry section for the bootstrap connectors.
func RetryConfig(cfg *config.Config) retry.RetryConfig {
	return retry.RetryConfig{
		Attempts: cfg.Retry.Attempts,
		Delay:    time.Duration(cfg.Retry.DelayMillis) * time.Millisecond,
		MaxDelay: time.Duration(cfg.Retry.MaxDelayMillis) * time.Millisecond,
	}
}
