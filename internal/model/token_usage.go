package model

import "time"

// TokenUsage is one completion's token accounting, written by the usage worker.
type TokenUsage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionID        string    `gorm:"size:36;not null;index" json:"session_id"`
	MessageID        string    `gorm:"size:36;not null" json:"message_id"`
	Model            string    `gorm:"size:64" json:"model"`
	PromptTokens     int       `gorm:"not null" json:"prompt_tokens"`
	CompletionTokens int       `gorm:"not null" json:"completion_tokens"`
	TotalTokens      int       `gorm:"not null" json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}
