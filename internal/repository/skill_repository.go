//go:generate mockery --name SkillRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SkillRepository interface {
	Create(ctx context.Context, tx *gorm.DB, skill *model.Skill) error
	FindByID(ctx context.Context, db *gorm.DB, userID, skillID uuid.UUID) (*model.Skill, error)
	FindByNode(ctx context.Context, db *gorm.DB, userID, nodeID uuid.UUID) (*model.Skill, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Skill, error)
	Save(ctx context.Context, tx *gorm.DB, skill *model.Skill) error
	// AvgLevel と CountByStatus は dev スコアの再計算用の集計です
	AvgLevel(ctx context.Context, db *gorm.DB, userID uuid.UUID) (float64, error)
	CountByStatus(ctx context.Context, db *gorm.DB, userID uuid.UUID, status model.SkillStatus) (int64, error)
}

type gormSkillRepository struct{}

func NewGormSkillRepository() SkillRepository {
	return &gormSkillRepository{}
}

func (r *gormSkillRepository) Create(ctx context.Context, tx *gorm.DB, skill *model.Skill) error {
	if err := tx.WithContext(ctx).Create(skill).Error; err != nil {
		return fmt.Errorf("gormSkillRepository.Create: %w", err)
	}
	return nil
}

func (r *gormSkillRepository) FindByID(ctx context.Context, db *gorm.DB, userID, skillID uuid.UUID) (*model.Skill, error) {
	var skill model.Skill
	result := db.WithContext(ctx).Where("user_id = ? AND skill_id = ?", userID, skillID).First(&skill)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormSkillRepository.FindByID: %w", result.Error)
	}
	return &skill, nil
}

func (r *gormSkillRepository) FindByNode(ctx context.Context, db *gorm.DB, userID, nodeID uuid.UUID) (*model.Skill, error) {
	var skill model.Skill
	result := db.WithContext(ctx).Where("user_id = ? AND node_id = ?", userID, nodeID).First(&skill)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormSkillRepository.FindByNode: %w", result.Error)
	}
	return &skill, nil
}

func (r *gormSkillRepository) FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Skill, error) {
	var skills []*model.Skill
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("level DESC, name ASC").
		Find(&skills).Error
	if err != nil {
		return nil, fmt.Errorf("gormSkillRepository.FindByUser: %w", err)
	}
	return skills, nil
}

func (r *gormSkillRepository) Save(ctx context.Context, tx *gorm.DB, skill *model.Skill) error {
	if err := tx.WithContext(ctx).Save(skill).Error; err != nil {
		return fmt.Errorf("gormSkillRepository.Save: %w", err)
	}
	return nil
}

func (r *gormSkillRepository) AvgLevel(ctx context.Context, db *gorm.DB, userID uuid.UUID) (float64, error) {
	var avg float64
	err := db.WithContext(ctx).Model(&model.Skill{}).
		Where("user_id = ?", userID).
		Select("COALESCE(AVG(level), 0)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("gormSkillRepository.AvgLevel: %w", err)
	}
	return avg, nil
}

func (r *gormSkillRepository) CountByStatus(ctx context.Context, db *gorm.DB, userID uuid.UUID, status model.SkillStatus) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&model.Skill{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gormSkillRepository.CountByStatus: %w", err)
	}
	return count, nil
}
