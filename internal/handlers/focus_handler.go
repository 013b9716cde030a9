// internal/handlers/focus_handler.go
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

type FocusHandler struct {
	service service.FocusService
	logger  *slog.Logger
}

func NewFocusHandler(s service.FocusService, logger *slog.Logger) *FocusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FocusHandler{
		service: s,
		logger:  logger,
	}
}

// Start はフォーカスセッション開始のハンドラ
func (h *FocusHandler) Start(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Start"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.FocusStartRequest
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

	session, err := h.service.Start(r.Context(), userID, &req)
	if err != nil {
		logger.Warn("Error starting focus session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Focus session started successfully", slog.String("session_id", session.SessionID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, session, logger)
}

// Stop はフォーカスセッション終了のハンドラ
func (h *FocusHandler) Stop(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Stop"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	// ボディは省略可能 (source_url を付けたい場合のみ)
	var req model.FocusStopRequest
	if r.Body != nil && r.ContentLength > 0 {
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
				return
			}
			logger.Error("Unexpected error during validation", slog.Any("error", err))
			webutil.HandleError(w, logger, err)
			return
		}
	}

	resp, err := h.service.Stop(r.Context(), userID, &req)
	if err != nil {
		logger.Warn("Error stopping focus session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Focus session stopped successfully",
		slog.String("session_id", resp.Session.SessionID.String()),
		slog.Int("xp_awarded", resp.XPAwarded))
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

// Cancel はフォーカスセッション破棄のハンドラ
func (h *FocusHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Cancel"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	session, err := h.service.Cancel(r.Context(), userID)
	if err != nil {
		logger.Warn("Error canceling focus session in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}

// GetActive は進行中のセッションを返すハンドラ
func (h *FocusHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetActive"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	session, err := h.service.GetActive(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, session, logger)
}

// List はセッション履歴を返すハンドラ
func (h *FocusHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "List"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		logger.Error("Error listing focus sessions in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if sessions == nil {
		sessions = []*model.FocusSession{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, sessions, logger)
}
