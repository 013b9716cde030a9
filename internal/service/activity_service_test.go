// internal/service/activity_service_test.go
package service

import (
	"context"
	"testing"

	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestActivity(db *gorm.DB) (ActivityService, ProgressionService) {
	progression, locker, _ := newTestProgression(db)
	svc := NewActivityService(db, repository.NewGormActivityRepository(), progression, locker)
	return svc, progression
}

func Test_activityService_CreateWorkout(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, progression := newTestActivity(db)
	userID := uuid.New()

	t.Run("正常系: 時間×強度のXPが付く", func(t *testing.T) {
		workout, err := svc.CreateWorkout(ctx, userID, &model.CreateWorkoutRequest{
			Type:      "running",
			Duration:  30,
			Intensity: 5,
			Date:      "2026-02-10",
		})
		require.NoError(t, err)
		assert.Equal(t, "running", workout.Type)

		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		// 30分 × 強度5
		assert.Equal(t, 150, stats.XP)
	})

	t.Run("正常系: 一覧は新しい順", func(t *testing.T) {
		_, err := svc.CreateWorkout(ctx, userID, &model.CreateWorkoutRequest{
			Type:      "cycling",
			Duration:  10,
			Intensity: 3,
			Date:      "2026-02-11",
		})
		require.NoError(t, err)

		workouts, err := svc.ListWorkouts(ctx, userID, 0)
		require.NoError(t, err)
		require.Len(t, workouts, 2)
	})
}

func Test_activityService_CreateLearningLog(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, progression := newTestActivity(db)
	userID := uuid.New()

	log, err := svc.CreateLearningLog(ctx, userID, &model.CreateLearningLogRequest{
		Date:  "2026-02-10",
		Title: "Goのジェネリクス",
		Note:  "型パラメータの制約について",
	})
	require.NoError(t, err)
	assert.Equal(t, "Goのジェネリクス", log.Title)

	stats, err := progression.GetHero(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, XPLearningLog, stats.XP)

	logs, err := svc.ListLearningLogs(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
