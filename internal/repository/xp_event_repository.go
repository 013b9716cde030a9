//go:generate mockery --name XPEventRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPEventRepository は追記専用のXPレジャーへのアクセスです。
// Create は重複チェックを行いません。冪等化はサービス層 (AwardXPEvent) の責務です。
type XPEventRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *model.XPEvent) error
	FindBySource(ctx context.Context, db *gorm.DB, userID uuid.UUID, sourceType, sourceID string) (*model.XPEvent, error)
	SumByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int, error)
	SumKindInRange(ctx context.Context, db *gorm.DB, userID uuid.UUID, kind model.XPEventKind, from, to time.Time) (int, error)
	CountByKind(ctx context.Context, db *gorm.DB, userID uuid.UUID, kind model.XPEventKind) (int64, error)
	FindSince(ctx context.Context, db *gorm.DB, userID uuid.UUID, from time.Time) ([]*model.XPEvent, error)
	// FindUnconsumed は since 以降の未消費イベントを古い順に返します (boss_defeat は除外)
	FindUnconsumed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, limit int) ([]*model.XPEvent, error)
	// MarkConsumed は未消費のイベントに攻撃IDを刻印します。
	// 既に刻印済みの行は対象外で、全件刻印できなかった場合はエラーを返します。
	MarkConsumed(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID, attackID uuid.UUID) error
}

type gormXPEventRepository struct{}

func NewGormXPEventRepository() XPEventRepository {
	return &gormXPEventRepository{}
}

func (r *gormXPEventRepository) Create(ctx context.Context, tx *gorm.DB, event *model.XPEvent) error {
	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("gormXPEventRepository.Create: %w", err)
	}
	return nil
}

func (r *gormXPEventRepository) FindBySource(ctx context.Context, db *gorm.DB, userID uuid.UUID, sourceType, sourceID string) (*model.XPEvent, error) {
	var event model.XPEvent
	result := db.WithContext(ctx).
		Where("user_id = ? AND source_type = ? AND source_id = ?", userID, sourceType, sourceID).
		First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormXPEventRepository.FindBySource: %w", result.Error)
	}
	return &event, nil
}

func (r *gormXPEventRepository) SumByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int, error) {
	var total int
	err := db.WithContext(ctx).Model(&model.XPEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("gormXPEventRepository.SumByUser: %w", err)
	}
	return total, nil
}

func (r *gormXPEventRepository) SumKindInRange(ctx context.Context, db *gorm.DB, userID uuid.UUID, kind model.XPEventKind, from, to time.Time) (int, error) {
	var total int
	err := db.WithContext(ctx).Model(&model.XPEvent{}).
		Where("user_id = ? AND kind = ? AND COALESCE(occurred_at, created_at) >= ? AND COALESCE(occurred_at, created_at) < ?", userID, kind, from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("gormXPEventRepository.SumKindInRange: %w", err)
	}
	return total, nil
}

func (r *gormXPEventRepository) CountByKind(ctx context.Context, db *gorm.DB, userID uuid.UUID, kind model.XPEventKind) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&model.XPEvent{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gormXPEventRepository.CountByKind: %w", err)
	}
	return count, nil
}

func (r *gormXPEventRepository) FindSince(ctx context.Context, db *gorm.DB, userID uuid.UUID, from time.Time) ([]*model.XPEvent, error) {
	var events []*model.XPEvent
	err := db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, from).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("gormXPEventRepository.FindSince: %w", err)
	}
	return events, nil
}

func (r *gormXPEventRepository) FindUnconsumed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, limit int) ([]*model.XPEvent, error) {
	var events []*model.XPEvent
	err := tx.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND consumed_by_attack_id IS NULL AND kind <> ?",
			userID, since, model.XPKindBossDefeat).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("gormXPEventRepository.FindUnconsumed: %w", err)
	}
	return events, nil
}

func (r *gormXPEventRepository) MarkConsumed(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID, attackID uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	result := tx.WithContext(ctx).Model(&model.XPEvent{}).
		Where("event_id IN ? AND consumed_by_attack_id IS NULL", eventIDs).
		Update("consumed_by_attack_id", attackID)
	if result.Error != nil {
		return fmt.Errorf("gormXPEventRepository.MarkConsumed: %w", result.Error)
	}
	// 刻印は一度きり。既に消費済みの行が混ざっていたら二重消費なので失敗させる。
	if result.RowsAffected != int64(len(eventIDs)) {
		return model.ErrConflict
	}
	return nil
}
