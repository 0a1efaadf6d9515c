package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gopherai-rag/internal/model"
)

type MessageFileRepository struct {
	db *gorm.DB
}

func NewMessageFileRepository(db *gorm.DB) *MessageFileRepository {
	return &MessageFileRepository{db: db}
}

func (r *MessageFileRepository) Create(ctx context.Context, file *model.MessageFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("create message file failed: %w", err)
	}
	return nil
}

func (r *MessageFileRepository) GetByID(ctx context.Context, id uint) (*model.MessageFile, error) {
	var file model.MessageFile
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message file failed: %w", err)
	}
	return &file, nil
}

// ListByMessageIDs returns the files of every given message, newest first.
func (r *MessageFileRepository) ListByMessageIDs(ctx context.Context, messageIDs []uint) ([]model.MessageFile, error) {
	if len(messageIDs) == 0 {
		return []model.MessageFile{}, nil
	}
	var files []model.MessageFile
	if err := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).Order("uploaded_at DESC, id DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list message files failed: %w", err)
	}
	return files, nil
}

func (r *MessageFileRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.MessageFile{}, id).Error; err != nil {
		return fmt.Errorf("delete message file failed: %w", err)
	}
	return nil
}

func (r *MessageFileRepository) DeleteBySessionID(ctx context.Context, sessionID uint) error {
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.MessageFile{}).Error; err != nil {
		return fmt.Errorf("delete message files failed: %w", err)
	}
	return nil
}
