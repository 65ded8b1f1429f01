package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-chat/internal/model"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&model.TokenUsage{}); err != nil {
		return fmt.Errorf("auto migrate usage table failed: %w", err)
	}
	return nil
}

func (r *UsageRepository) Create(ctx context.Context, usage *model.TokenUsage) error {
	if err := r.db.WithContext(ctx).Create(usage).Error; err != nil {
		return fmt.Errorf("create token usage failed: %w", err)
	}
	return nil
}

func (r *UsageRepository) ListBySessionID(ctx context.Context, sessionID string) ([]model.TokenUsage, error) {
	var usages []model.TokenUsage
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&usages).Error; err != nil {
		return nil, fmt.Errorf("list token usage failed: %w", err)
	}
	return usages, nil
}
