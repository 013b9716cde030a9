//go:generate mockery --name BossRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BossRepository interface {
	Create(ctx context.Context, tx *gorm.DB, boss *model.BossRun) error
	FindActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.BossRun, error)
	FindLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.BossRun, error)
	Save(ctx context.Context, tx *gorm.DB, boss *model.BossRun) error
	CreateAttack(ctx context.Context, tx *gorm.DB, attack *model.BossAttack) error
	SumDamage(ctx context.Context, db *gorm.DB, bossID uuid.UUID) (int, error)
}

type gormBossRepository struct{}

func NewGormBossRepository() BossRepository {
	return &gormBossRepository{}
}

func (r *gormBossRepository) Create(ctx context.Context, tx *gorm.DB, boss *model.BossRun) error {
	if err := tx.WithContext(ctx).Create(boss).Error; err != nil {
		return fmt.Errorf("gormBossRepository.Create: %w", err)
	}
	return nil
}

func (r *gormBossRepository) FindActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.BossRun, error) {
	var boss model.BossRun
	result := tx.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.BossStatusActive).
		First(&boss)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormBossRepository.FindActive: %w", result.Error)
	}
	return &boss, nil
}

func (r *gormBossRepository) FindLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.BossRun, error) {
	var boss model.BossRun
	result := tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&boss)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormBossRepository.FindLatest: %w", result.Error)
	}
	return &boss, nil
}

func (r *gormBossRepository) Save(ctx context.Context, tx *gorm.DB, boss *model.BossRun) error {
	if err := tx.WithContext(ctx).Save(boss).Error; err != nil {
		return fmt.Errorf("gormBossRepository.Save: %w", err)
	}
	return nil
}

func (r *gormBossRepository) CreateAttack(ctx context.Context, tx *gorm.DB, attack *model.BossAttack) error {
	if err := tx.WithContext(ctx).Create(attack).Error; err != nil {
		return fmt.Errorf("gormBossRepository.CreateAttack: %w", err)
	}
	return nil
}

func (r *gormBossRepository) SumDamage(ctx context.Context, db *gorm.DB, bossID uuid.UUID) (int, error) {
	var total int
	err := db.WithContext(ctx).Model(&model.BossAttack{}).
		Where("boss_id = ?", bossID).
		Select("COALESCE(SUM(damage), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("gormBossRepository.SumDamage: %w", err)
	}
	return total, nil
}
