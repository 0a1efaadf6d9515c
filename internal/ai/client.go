package ai

import (
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = string(openai.AdaEmbeddingV2)
	DefaultDimensions     = 1536
)

var (
	ErrMissingAPIKey     = errors.New("llm api key is required")
	ErrEmptyResponse     = errors.New("empty response from provider")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyInput        = errors.New("embedding input is empty")
)

// Config holds provider settings shared by the embedding client and the chat model.
// A nil Temperature or TopP selects the default; zero is a valid setting.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
	Temperature    *float32
	TopP           *float32
	EmbedTimeout   time.Duration
	ChatTimeout    time.Duration
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	api *openai.Client
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Temperature == nil {
		cfg.Temperature = Float32(0.2)
	}
	if cfg.TopP == nil {
		cfg.TopP = Float32(0.9)
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 90 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.ChatTimeout + 5*time.Second}

	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}, nil
}

// Float32 returns a pointer to v for the optional sampling settings.
func Float32(v float32) *float32 { return &v }
