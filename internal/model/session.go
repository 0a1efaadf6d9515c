package model

import "time"

// Session is one chat conversation owned by a user.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All returns every model the service migrates on start.
func All() []any {
	return []any{&User{}, &Session{}, &Message{}, &MessageFile{}, &Product{}, &DocumentChunk{}}
}
