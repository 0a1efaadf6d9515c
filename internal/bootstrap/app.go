package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appsvc "gopherai-rag/internal/app"
	"gopherai-rag/internal/cache"
	"gopherai-rag/internal/config"
	"gopherai-rag/internal/model"
	"gopherai-rag/internal/pkg/retry"
	mysqlClient "gopherai-rag/internal/platform/mysql"
	rabbitmqClient "gopherai-rag/internal/platform/rabbitmq"
	redisClient "gopherai-rag/internal/platform/redis"
	"gopherai-rag/internal/repository"
	"gopherai-rag/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger

	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Core   *Core

	AuthService    *appsvc.AuthService
	ChatService    *appsvc.ChatService
	ProductService *appsvc.ProductService
	RAGService     *appsvc.RAGService

	publisher     *rabbitmqClient.MessagePublisher
	MessageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, StartedAt: time.Now()}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg, rc := a.Config, RetryConfig(a.Config)

	var err error
	a.MySQL, err = retry.Connect(ctx, a.Log, "mysql", rc, func(ctx context.Context) (*gorm.DB, error) {
		opts := mysqlClient.DefaultOptions()
		opts.Verbose = cfg.App.Env == "dev"
		return mysqlClient.New(ctx, cfg.MySQLDSN(), opts)
	})
	if err != nil {
		return err
	}
	if err := mysqlClient.Migrate(ctx, a.MySQL, model.All()...); err != nil {
		return err
	}

	a.Redis, err = retry.Connect(ctx, a.Log, "redis", rc, func(ctx context.Context) (*redis.Client, error) {
		return redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	})
	if err != nil {
		return err
	}

	a.MQConn, err = retry.Connect(ctx, a.Log, "rabbitmq", rc, func(ctx context.Context) (*amqp.Connection, error) {
		return rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	})
	return err
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	core, err := NewCore(ctx, cfg, a.Log, a.MySQL)
	if err != nil {
		return err
	}
	a.Core = core

	userRepo := repository.NewUserRepository(a.MySQL)
	sessionRepo := repository.NewSessionRepository(a.MySQL)
	messageRepo := repository.NewMessageRepository(a.MySQL)
	messageFileRepo := repository.NewMessageFileRepository(a.MySQL)

	historyCache := cache.NewHistoryCache(
		a.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	a.publisher = rabbitmqClient.NewMessagePublisher(a.MQConn, cfg.RabbitMQ.MessagePersistQueue)

	a.AuthService = appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	a.ProductService = core.Products
	a.RAGService = appsvc.NewRAGService(core.Ingestor, core.Responder, userRepo)
	a.ChatService = appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		messageFileRepo,
		a.publisher,
		historyCache,
		core.Responder,
		cfg.LLM.MaxContextMessage,
	)

	a.MessageWorker = worker.NewMessagePersistWorker(a.MQConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue, a.Log)
	if err := a.MessageWorker.Start(ctx); err != nil {
		return fmt.Errorf("start message worker failed: %w", err)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.Core != nil {
		a.Core.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := mysqlClient.Close(a.MySQL); err != nil {
		errs = append(errs, fmt.Errorf("close mysql: %w", err))
	}
	return errors.Join(errs...)
}
