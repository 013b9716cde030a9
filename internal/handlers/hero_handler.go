// internal/handlers/hero_handler.go
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

// HeroHandler はヒーローの進行状態 (レベル/XP/属性/ランク) のハンドラです
type HeroHandler struct {
	service service.ProgressionService
	logger  *slog.Logger
}

func NewHeroHandler(s service.ProgressionService, logger *slog.Logger) *HeroHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeroHandler{
		service: s,
		logger:  logger,
	}
}

// GetHero は現在の進行状態を返すハンドラ
func (h *HeroHandler) GetHero(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetHero"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	stats, err := h.service.GetHero(r.Context(), userID)
	if err != nil {
		logger.Error("Error getting hero stats in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, stats, logger)
}

// Allocate はステータスポイント割り振りのハンドラ
func (h *HeroHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Allocate"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.AllocateStatsRequest
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

	stats, err := h.service.AllocateStatPoints(r.Context(), userID, &req)
	if err != nil {
		logger.Warn("Error allocating stat points in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Stat points allocated successfully")
	webutil.RespondWithJSON(w, http.StatusOK, stats, logger)
}

// GetAnalyticsSummary は直近30日のレジャー集計を返すハンドラ
func (h *HeroHandler) GetAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetAnalyticsSummary"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	summary, err := h.service.AnalyticsSummary(r.Context(), userID)
	if err != nil {
		logger.Error("Error building analytics summary in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, summary, logger)
}

// GetRanks はランク表を返すハンドラ (参照データ)
func (h *HeroHandler) GetRanks(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetRanks"))
	webutil.RespondWithJSON(w, http.StatusOK, h.service.RankTable(), logger)
}

// GetXPRules は進行ルールの定数を返すハンドラ (参照データ)
func (h *HeroHandler) GetXPRules(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetXPRules"))
	webutil.RespondWithJSON(w, http.StatusOK, h.service.XPRules(), logger)
}
