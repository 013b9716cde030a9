//go:generate mockery --name FocusRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FocusRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *model.FocusSession) error
	// FindActive はアクティブ (ended_at IS NULL かつ canceled=false) なセッションを返します
	FindActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.FocusSession, error)
	Save(ctx context.Context, tx *gorm.DB, session *model.FocusSession) error
	FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.FocusSession, error)
}

type gormFocusRepository struct{}

func NewGormFocusRepository() FocusRepository {
	return &gormFocusRepository{}
}

func (r *gormFocusRepository) Create(ctx context.Context, tx *gorm.DB, session *model.FocusSession) error {
	if err := tx.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("gormFocusRepository.Create: %w", err)
	}
	return nil
}

func (r *gormFocusRepository) FindActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.FocusSession, error) {
	var session model.FocusSession
	result := tx.WithContext(ctx).
		Where("user_id = ? AND ended_at IS NULL AND canceled = ?", userID, false).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormFocusRepository.FindActive: %w", result.Error)
	}
	return &session, nil
}

func (r *gormFocusRepository) Save(ctx context.Context, tx *gorm.DB, session *model.FocusSession) error {
	if err := tx.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("gormFocusRepository.Save: %w", err)
	}
	return nil
}

func (r *gormFocusRepository) FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.FocusSession, error) {
	var sessions []*model.FocusSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gormFocusRepository.FindByUser: %w", err)
	}
	return sessions, nil
}
