package rag

import (
	"time"

	"gopherai-rag/internal/ai"
)

const (
	DefaultTopK    = 3
	DefaultWorkers = 4
)

// Config tunes the ingestion pipeline and the responder. Zero values fall back
// to the defaults below, except the sampling settings where only nil does.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Workers      int

	EmbedTimeout time.Duration
	StoreTimeout time.Duration
	ModelTimeout time.Duration
	ToolTimeout  time.Duration

	Temperature *float32
	TopP        *float32
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		TopK:         DefaultTopK,
		Workers:      DefaultWorkers,
		EmbedTimeout: 30 * time.Second,
		StoreTimeout: 10 * time.Second,
		ModelTimeout: 90 * time.Second,
		ToolTimeout:  5 * time.Second,
		Temperature:  ai.Float32(0.2),
		TopP:         ai.Float32(0.9),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = d.ChunkOverlap
		}
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = d.EmbedTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = d.ModelTimeout
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = d.ToolTimeout
	}
	if c.Temperature == nil {
		c.Temperature = d.Temperature
	}
	if c.TopP == nil {
		c.TopP = d.TopP
	}
	return c
}
