package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MessageType = "Message"

var ErrMessageNotFound = errors.New("message not found")

type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      string    `gorm:"size:16;not null" json:"type"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	TimeStamp time.Time `gorm:"not null;index" json:"timestamp"`
	Sender    Role      `gorm:"size:16;not null" json:"sender"`
	Tokens    int       `gorm:"not null;default:0" json:"tokens"`
	Text      string    `gorm:"type:text;not null" json:"text"`
}

// NewMessage builds a message stamped with the current UTC time.
func NewMessage(sessionID string, sender Role, tokens int, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      MessageType,
		SessionID: sessionID,
		TimeStamp: time.Now().UTC(),
		Sender:    sender,
		Tokens:    tokens,
		Text:      text,
	}
}
