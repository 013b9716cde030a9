//go:generate mockery --name StatsRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatsRepository interface {
	// FindOrCreate はユーザーの進行キャッシュ行を取得し、無ければ初期値で作成します
	FindOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.UserStats, error)
	Save(ctx context.Context, tx *gorm.DB, stats *model.UserStats) error
}

type gormStatsRepository struct{}

func NewGormStatsRepository() StatsRepository {
	return &gormStatsRepository{}
}

func (r *gormStatsRepository) FindOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.UserStats, error) {
	var stats model.UserStats
	result := tx.WithContext(ctx).Where("user_id = ?", userID).First(&stats)
	if result.Error == nil {
		return &stats, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("gormStatsRepository.FindOrCreate: %w", result.Error)
	}

	stats = model.UserStats{
		UserID:        userID,
		Level:         1,
		XP:            0,
		XPToNextLevel: 100,
		Strength:      1,
		Agility:       1,
		Intelligence:  1,
		Vitality:      1,
		Rank:          model.RankE,
	}
	if err := tx.WithContext(ctx).Create(&stats).Error; err != nil {
		return nil, fmt.Errorf("gormStatsRepository.FindOrCreate: %w", err)
	}
	return &stats, nil
}

func (r *gormStatsRepository) Save(ctx context.Context, tx *gorm.DB, stats *model.UserStats) error {
	if err := tx.WithContext(ctx).Save(stats).Error; err != nil {
		return fmt.Errorf("gormStatsRepository.Save: %w", err)
	}
	return nil
}
