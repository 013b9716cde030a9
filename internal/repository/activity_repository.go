//go:generate mockery --name ActivityRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"fmt"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityRepository はXPを生むコラボレータ (トレーニング/学習記録) の永続化です
type ActivityRepository interface {
	CreateWorkout(ctx context.Context, tx *gorm.DB, workout *model.Workout) error
	FindWorkouts(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.Workout, error)
	CreateLearningLog(ctx context.Context, tx *gorm.DB, log *model.LearningLog) error
	FindLearningLogs(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.LearningLog, error)
}

type gormActivityRepository struct{}

func NewGormActivityRepository() ActivityRepository {
	return &gormActivityRepository{}
}

func (r *gormActivityRepository) CreateWorkout(ctx context.Context, tx *gorm.DB, workout *model.Workout) error {
	if err := tx.WithContext(ctx).Create(workout).Error; err != nil {
		return fmt.Errorf("gormActivityRepository.CreateWorkout: %w", err)
	}
	return nil
}

func (r *gormActivityRepository) FindWorkouts(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.Workout, error) {
	var workouts []*model.Workout
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&workouts).Error
	if err != nil {
		return nil, fmt.Errorf("gormActivityRepository.FindWorkouts: %w", err)
	}
	return workouts, nil
}

func (r *gormActivityRepository) CreateLearningLog(ctx context.Context, tx *gorm.DB, log *model.LearningLog) error {
	if err := tx.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("gormActivityRepository.CreateLearningLog: %w", err)
	}
	return nil
}

func (r *gormActivityRepository) FindLearningLogs(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.LearningLog, error) {
	var logs []*model.LearningLog
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("gormActivityRepository.FindLearningLogs: %w", err)
	}
	return logs, nil
}
