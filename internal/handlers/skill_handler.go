// internal/handlers/skill_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/service"
	"go_5_hero_quest/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type SkillHandler struct {
	service service.SkillService
	logger  *slog.Logger
}

func NewSkillHandler(s service.SkillService, logger *slog.Logger) *SkillHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SkillHandler{
		service: s,
		logger:  logger,
	}
}

// GetTree はスキルツリーをユーザー視点の状態付きで返すハンドラ
func (h *SkillHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetTree"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	tree, err := h.service.GetTree(r.Context(), userID)
	if err != nil {
		logger.Error("Error resolving skill tree in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, tree, logger)
}

// GetNodes は全ノードをフラットな一覧で返すハンドラ
func (h *SkillHandler) GetNodes(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetNodes"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	tree, err := h.service.GetTree(r.Context(), userID)
	if err != nil {
		logger.Error("Error resolving skill tree in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	nodes := []*model.SkillNodeView{}
	for _, track := range tree {
		nodes = append(nodes, track.Nodes...)
	}
	webutil.RespondWithJSON(w, http.StatusOK, nodes, logger)
}

// ActivateNode はツリーノード取得のハンドラ
func (h *SkillHandler) ActivateNode(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ActivateNode"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	nodeIDStr := chi.URLParam(r, "node_id")
	nodeID, err := uuid.Parse(nodeIDStr)
	if err != nil {
		logger.Warn("Invalid node ID format", slog.String("node_id", nodeIDStr))
		appErr := model.NewAppError("INVALID_NODE_ID", "ノードIDの形式が正しくありません。", "node_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	skill, err := h.service.ActivateNode(r.Context(), userID, nodeID)
	if err != nil {
		logger.Warn("Error activating skill node in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Skill node activated successfully", slog.String("skill_id", skill.SkillID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, skill, logger)
}

// ListSkills は所持スキル一覧を返すハンドラ
func (h *SkillHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListSkills"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}

	skills, err := h.service.ListSkills(r.Context(), userID)
	if err != nil {
		logger.Error("Error listing skills in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	if skills == nil {
		skills = []*model.Skill{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, skills, logger)
}

// CreateSkill は自由入力スキル作成のハンドラ
func (h *SkillHandler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CreateSkill"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	var req model.CreateSkillRequest
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

	skill, err := h.service.CreateSkill(r.Context(), userID, &req)
	if err != nil {
		logger.Error("Error creating skill in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Skill created successfully", slog.String("skill_id", skill.SkillID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, skill, logger)
}

// UpgradeSkill はスキルレベル更新のハンドラ
func (h *SkillHandler) UpgradeSkill(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "UpgradeSkill"))

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		logger.Warn("Unauthorized access attempt", slog.String("error", err.Error()))
		appErr := model.NewAppError("UNAUTHORIZED", "認証情報が見つかりません。", "", model.ErrForbidden)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("user_id", userID.String()))

	skillIDStr := chi.URLParam(r, "skill_id")
	skillID, err := uuid.Parse(skillIDStr)
	if err != nil {
		logger.Warn("Invalid skill ID format", slog.String("skill_id", skillIDStr))
		appErr := model.NewAppError("INVALID_SKILL_ID", "スキルIDの形式が正しくありません。", "skill_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	var req model.UpgradeSkillRequest
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

	skill, err := h.service.UpgradeSkill(r.Context(), userID, skillID, &req)
	if err != nil {
		logger.Warn("Error upgrading skill in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Skill upgraded successfully",
		slog.String("skill_id", skill.SkillID.String()),
		slog.Int("level", skill.Level))
	webutil.RespondWithJSON(w, http.StatusOK, skill, logger)
}
