package model

import "time"

// MessageFile is a file attached to a chat message. SessionID is copied from
// the message so ownership checks need no join.
type MessageFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MessageID  uint      `gorm:"not null;index" json:"message_id"`
	SessionID  uint      `gorm:"not null;index" json:"session_id"`
	FileURL    string    `gorm:"size:1024;not null" json:"file_url"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	UploadedAt time.Time `gorm:"autoCreateTime;index" json:"uploaded_at"`
}
