package service

import (
	"context"

	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityService はレジャーへの入力源になる記録系の操作です。
// 記録の保存とXP付与は同一トランザクションで行い、ソースIDに記録IDを
// 使うので再送してもXPは二重に付きません。
type ActivityService interface {
	CreateWorkout(ctx context.Context, userID uuid.UUID, req *model.CreateWorkoutRequest) (*model.Workout, error)
	ListWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Workout, error)
	CreateLearningLog(ctx context.Context, userID uuid.UUID, req *model.CreateLearningLogRequest) (*model.LearningLog, error)
	ListLearningLogs(ctx context.Context, userID uuid.UUID, limit int) ([]*model.LearningLog, error)
}

type activityService struct {
	db           *gorm.DB
	activityRepo repository.ActivityRepository
	progression  ProgressionService
	locker       *UserLocker
}

func NewActivityService(db *gorm.DB, activityRepo repository.ActivityRepository, progression ProgressionService, locker *UserLocker) ActivityService {
	return &activityService{
		db:           db,
		activityRepo: activityRepo,
		progression:  progression,
		locker:       locker,
	}
}

func (s *activityService) CreateWorkout(ctx context.Context, userID uuid.UUID, req *model.CreateWorkoutRequest) (*model.Workout, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	workout := &model.Workout{
		WorkoutID: uuid.New(),
		UserID:    userID,
		Type:      req.Type,
		Duration:  req.Duration,
		Intensity: req.Intensity,
		Date:      req.Date,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cerr := s.activityRepo.CreateWorkout(ctx, tx, workout); cerr != nil {
			logger.Error("Failed to create workout", "error", cerr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "トレーニング記録の作成に失敗しました。", "", cerr)
		}
		// XP換算: 分数 × 強度
		_, _, aerr := s.progression.AwardXPEventInTx(ctx, tx, userID, AwardParams{
			Kind:       model.XPKindWorkout,
			Amount:     req.Duration * req.Intensity,
			SourceType: "workout",
			SourceID:   workout.WorkoutID.String(),
			Metadata: map[string]any{
				"type":      req.Type,
				"duration":  req.Duration,
				"intensity": req.Intensity,
			},
		})
		return aerr
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Workout recorded", "workout_id", workout.WorkoutID, "xp", req.Duration*req.Intensity)
	return workout, nil
}

func (s *activityService) ListWorkouts(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Workout, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	workouts, err := s.activityRepo.FindWorkouts(ctx, s.db, userID, limit)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "トレーニング記録の取得に失敗しました。", "", err)
	}
	return workouts, nil
}

func (s *activityService) CreateLearningLog(ctx context.Context, userID uuid.UUID, req *model.CreateLearningLogRequest) (*model.LearningLog, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	log := &model.LearningLog{
		LogID:  uuid.New(),
		UserID: userID,
		Date:   req.Date,
		Title:  req.Title,
		Note:   req.Note,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cerr := s.activityRepo.CreateLearningLog(ctx, tx, log); cerr != nil {
			logger.Error("Failed to create learning log", "error", cerr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "学習記録の作成に失敗しました。", "", cerr)
		}
		_, _, aerr := s.progression.AwardXPEventInTx(ctx, tx, userID, AwardParams{
			Kind:       model.XPKindLearningLog,
			Amount:     XPLearningLog,
			SourceType: "learning_log",
			SourceID:   log.LogID.String(),
			Metadata:   map[string]any{"title": req.Title},
		})
		return aerr
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Learning log recorded", "log_id", log.LogID)
	return log, nil
}

func (s *activityService) ListLearningLogs(ctx context.Context, userID uuid.UUID, limit int) ([]*model.LearningLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	logs, err := s.activityRepo.FindLearningLogs(ctx, s.db, userID, limit)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "学習記録の取得に失敗しました。", "", err)
	}
	return logs, nil
}
