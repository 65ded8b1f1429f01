package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-chat/internal/model"
)

// ChatRepository keeps sessions and their messages in a relational database.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Migrate creates or updates the chat tables.
func (r *ChatRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&model.Session{}, &model.Message{}); err != nil {
		return fmt.Errorf("auto migrate chat tables failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).
		Where("type = ?", model.SessionType).
		Order("created_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *ChatRepository) InsertSession(ctx context.Context, session *model.Session) error {
	record := session.Record()
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) UpdateSession(ctx context.Context, session *model.Session) error {
	record := session.Record()
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("update session failed: %w", err)
	}
	return nil
}

// DeleteSessionAndMessages removes the session and every message in it in
// one transaction.
func (r *ChatRepository) DeleteSessionAndMessages(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sessionID).Delete(&model.Session{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
