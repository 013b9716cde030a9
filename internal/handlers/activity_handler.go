// internal/handlers/activity_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/service"
	"go_5_hero_quest/internal/webutil"

	"github.com/go-playground/validator/v10"
)

// ActivityHandler はトレーニング記録と学習記録のハンドラです
type ActivityHandler struct {
	service service.ActivityService
	logger  *slog.Logger
}

func NewActivityHandler(s service.ActivityService, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{
		service: s,
		logger:  logger,
	}
}

// CreateWorkout はトレーニング記録作成のハンドラ
func (h *ActivityHandler) CreateWorkout(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CreateWorkout"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.CreateWorkoutRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if err := webutil.Validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			firstErr := validationErrors[0]
			translatedMsg := firstErr.Translate(webutil.Trans)
			appErr := model.NewAppError("VALIDATION_ERROR", translatedMsg, firstErr.Field(), model.ErrInvalidInput)
			webutil.HandleError(w, logger, appErr)
		} else {
			logger.Error("Unexpected error during validation", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
		}
		return
	}

	workout, err := h.service.CreateWorkout(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Error creating workout in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Workout created successfully", slog.String("workout_id", workout.WorkoutID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, workout, logger)
}

// ListWorkouts はトレーニング記録一覧のハンドラ
func (h *ActivityHandler) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListWorkouts"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	workouts, err := h.service.ListWorkouts(r.Context(), userID, limit)
	if err != nil {
		logger.Error("Error listing workouts in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if workouts == nil {
		workouts = []*model.Workout{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, workouts, logger)
}

// CreateLearningLog は学習記録作成のハンドラ
func (h *ActivityHandler) CreateLearningLog(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CreateLearningLog"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.CreateLearningLogRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if err := webutil.Validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			firstErr := validationErrors[0]
			translatedMsg := firstErr.Translate(webutil.Trans)
			appErr := model.NewAppError("VALIDATION_ERROR", translatedMsg, firstErr.Field(), model.ErrInvalidInput)
			webutil.HandleError(w, logger, appErr)
		} else {
			logger.Error("Unexpected error during validation", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
		}
		return
	}

	log, err := h.service.CreateLearningLog(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Error creating learning log in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Learning log created successfully", slog.String("log_id", log.LogID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, log, logger)
}

// ListLearningLogs は学習記録一覧のハンドラ
func (h *ActivityHandler) ListLearningLogs(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListLearningLogs"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.service.ListLearningLogs(r.Context(), userID, limit)
	if err != nil {
		logger.Error("Error listing learning logs in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if logs == nil {
		logs = []*model.LearningLog{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, logs, logger)
}
