package model

import (
	"time"

	"github.com/google/uuid"
)

// Workout はトレーニング記録です。作成時に duration * intensity のXPを付与します。
type Workout struct {
	WorkoutID uuid.UUID `gorm:"type:uuid;primaryKey" json:"workout_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	Duration  int       `gorm:"not null" json:"duration"`  // 分
	Intensity int       `gorm:"not null" json:"intensity"` // 1..10
	Date      string    `gorm:"type:varchar(10);not null" json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

func (Workout) TableName() string {
	return "workouts"
}

// CreateWorkoutRequest はトレーニング記録作成のリクエストDTO
type CreateWorkoutRequest struct {
	Type      string `json:"type" validate:"required,max=32"`
	Duration  int    `json:"duration" validate:"required,min=1,max=600"`
	Intensity int    `json:"intensity" validate:"required,min=1,max=10"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
}

// LearningLog は学習記録です。作成時に固定XPを付与します。
type LearningLog struct {
	LogID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"log_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Date      string    `gorm:"type:varchar(10);not null" json:"date"`
	Title     string    `gorm:"type:varchar(128);not null" json:"title"`
	Note      string    `gorm:"not null;default:''" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (LearningLog) TableName() string {
	return "learning_logs"
}

// CreateLearningLogRequest は学習記録作成のリクエストDTO
type CreateLearningLogRequest struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Title string `json:"title" validate:"required,min=1,max=128"`
	Note  string `json:"note" validate:"omitempty,max=2000"`
}
