package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"gopherai-chat/internal/model"
)

func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND type = ?", sessionID, model.MessageType).
		Order("time_stamp ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

func (r *ChatRepository) InsertMessage(ctx context.Context, message *model.Message) (*model.Message, error) {
	stored := *message
	if err := r.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, fmt.Errorf("create message failed: %w", err)
	}
	return &stored, nil
}

// UpsertMessages writes all messages in a single statement, inserting new ids
// and overwriting existing ones.
func (r *ChatRepository) UpsertMessages(ctx context.Context, messages ...model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	batch := make([]model.Message, len(messages))
	copy(batch, messages)

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&batch).Error; err != nil {
		return fmt.Errorf("upsert messages failed: %w", err)
	}
	return nil
}
