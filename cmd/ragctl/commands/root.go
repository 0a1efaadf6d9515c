package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gopherai-rag/internal/bootstrap"
	"gopherai-rag/internal/config"
	"gopherai-rag/internal/logger"
	"gopherai-rag/internal/model"
	"gopherai-rag/internal/pkg/retry"
	mysqlClient "gopherai-rag/internal/platform/mysql"
	"gopherai-rag/internal/rag"
)

// Pipeline is the part of the retrieval core the commands drive.
type Pipeline interface {
	IngestFile(ctx context.Context, data []byte) (*rag.IngestResult, error)
	IngestText(ctx context.Context, text string) (*rag.IngestResult, error)
	EmbedText(ctx context.Context, text string) (rag.ChunkID, error)
	Answer(ctx context.Context, query string, history []rag.Turn) (string, error)
	Welcome(ctx context.Context, req rag.WelcomeRequest) (string, error)
}

// Opener builds a pipeline and the function that releases it.
type Opener func(ctx context.Context) (Pipeline, func(), error)

type pipeline struct {
	*rag.Ingestor
	*rag.Responder
}

func Execute() error {
	return NewRootCmd(openConfigured).Execute()
}

func NewRootCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate the retrieval pipeline from the command line",
		Long: `ragctl ingests documents into the configured vector store and asks
grounded questions against it.

Configuration is read like the server reads it: CONFIG_FILE, then .env,
then the environment. The memory backend keeps nothing between runs.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newIngestCmd(open),
		newEmbedCmd(open),
		newAskCmd(open),
		newWelcomeCmd(open),
	)
	return cmd
}

func openConfigured(ctx context.Context) (Pipeline, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	if cfg.RAG.VectorBackend == config.VectorBackendMySQL {
		db, err = retry.Connect(ctx, log, "mysql", bootstrap.RetryConfig(cfg), func(ctx context.Context) (*gorm.DB, error) {
			return mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.DefaultOptions())
		})
		if err != nil {
			_ = log.Sync()
			return nil, nil, err
		}
		if err := mysqlClient.Migrate(ctx, db, model.All()...); err != nil {
			_ = mysqlClient.Close(db)
			return nil, nil, err
		}
	}

	core, err := bootstrap.NewCore(ctx, cfg, log, db)
	if err != nil {
		_ = mysqlClient.Close(db)
		return nil, nil, err
	}
	closeFn := func() {
		core.Close()
		if err := mysqlClient.Close(db); err != nil {
			log.Warn("close mysql failed", zap.Error(err))
		}
		_ = log.Sync()
	}
	return pipeline{Ingestor: core.Ingestor, Responder: core.Responder}, closeFn, nil
}

func withPipeline(cmd *cobra.Command, open Opener, fn func(ctx context.Context, p Pipeline) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, p)
}
