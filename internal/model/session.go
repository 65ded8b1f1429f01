package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionType        = "Session"
	DefaultSessionName = "New Chat"
)

type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      string    `gorm:"size:16;not null" json:"type"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Messages  []Message `gorm:"-" json:"messages,omitempty"`
}

func NewSession() *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Type:      SessionType,
		SessionID: id,
		Name:      DefaultSessionName,
		CreatedAt: time.Now().UTC(),
		Messages:  []Message{},
	}
}

// AddMessage appends m. Persisting it is up to the caller.
func (s *Session) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
}

// UpdateMessage replaces the message carrying m.ID in place. Exactly one
// message must match.
func (s *Session) UpdateMessage(m Message) error {
	idx := -1
	for i := range s.Messages {
		if s.Messages[i].ID != m.ID {
			continue
		}
		if idx >= 0 {
			return ErrMessageNotFound
		}
		idx = i
	}
	if idx < 0 {
		return ErrMessageNotFound
	}
	s.Messages[idx] = m
	return nil
}

// Clone returns a copy that shares no message storage with s.
func (s *Session) Clone() Session {
	out := *s
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// Record returns the session without its messages, the shape stored
// alongside but separate from the message documents.
func (s *Session) Record() Session {
	out := *s
	out.Messages = nil
	return out
}
