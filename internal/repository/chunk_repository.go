package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-rag/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// Create inserts one chunk in its own statement, so it is either fully
// visible or absent.
func (r *ChunkRepository) Create(ctx context.Context, chunk *model.DocumentChunk) error {
	if err := r.db.WithContext(ctx).Create(chunk).Error; err != nil {
		return fmt.Errorf("create document chunk failed: %w", err)
	}
	return nil
}

// ScanEmbedded walks chunks that have an embedding in insertion order.
func (r *ChunkRepository) ScanEmbedded(ctx context.Context, batchSize int, fn func([]model.DocumentChunk) error) error {
	var batch []model.DocumentChunk
	result := r.db.WithContext(ctx).
		Where("embedding IS NOT NULL").
		Order("id ASC").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		return fmt.Errorf("scan document chunks failed: %w", result.Error)
	}
	return nil
}
