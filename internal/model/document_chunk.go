package model

import (
	"encoding/json"
	"time"
)

// DocumentChunk stores an ingested text chunk and its embedding.
// Embedding is a JSON array of float32 so any MySQL version can hold it.
type DocumentChunk struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	ChunkID    string    `gorm:"type:char(36);uniqueIndex;not null" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  *string   `gorm:"type:longtext" json:"-"`
	Dimensions int       `gorm:"not null" json:"dimensions"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding; nil when missing or unreadable.
func (c *DocumentChunk) EmbeddingVector() []float32 {
	if c.Embedding == nil || *c.Embedding == "" {
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(*c.Embedding), &v); err != nil {
		return nil
	}
	return v
}

func (c *DocumentChunk) SetEmbedding(vec []float32) error {
	b, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	s := string(b)
	c.Embedding = &s
	c.Dimensions = len(vec)
	return nil
}
