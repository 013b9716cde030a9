// internal/handlers/boss_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/service"
	"go_5_hero_quest/internal/webutil"

	"github.com/go-playground/validator/v10"
)

type BossHandler struct {
	service service.BossService
	logger  *slog.Logger
}

func NewBossHandler(s service.BossService, logger *slog.Logger) *BossHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BossHandler{
		service: s,
		logger:  logger,
	}
}

// GetBoss は現在のボスを返すハンドラ (初回は生成される)
func (h *BossHandler) GetBoss(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetBoss"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	boss, err := h.service.GetBoss(r.Context(), userID)
	if err != nil {
		logger.Error("Error getting boss in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, boss, logger)
}

// Attack はボス攻撃のハンドラ
func (h *BossHandler) Attack(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Attack"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	// ボディ省略時はデフォルトの消費上限で攻撃する
	var req model.BossAttackRequest
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

	resp, err := h.service.Attack(r.Context(), userID, &req)
	if err != nil {
		logger.Warn("Error attacking boss in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Boss attacked successfully",
		slog.String("boss_id", resp.Boss.BossID.String()),
		slog.Int("damage", resp.Damage),
		slog.Bool("defeated", resp.Defeated))
	webutil.RespondWithJSON(w, http.StatusOK, resp, logger)
}

// Next は次のボス開始のハンドラ
func (h *BossHandler) Next(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Next"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	boss, err := h.service.NextBoss(r.Context(), userID)
	if err != nil {
		logger.Warn("Error starting next boss in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Next boss started successfully", slog.String("boss_id", boss.BossID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, boss, logger)
}
