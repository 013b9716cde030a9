// internal/handlers/helpers_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"go_5_hero_quest/internal/config"
	"go_5_hero_quest/internal/handlers"
	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/repository"
	"go_5_hero_quest/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRouter は実サービスを束ねたルーターを構築します。
// 認証は開発用ミドルウェア (X-User-ID ヘッダー) に差し替えます。
func setupTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, repository.AutoMigrate(db), "Failed to migrate test database")

	cfg := &config.Config{}
	cfg.Game = config.GameConfig{
		StatPointsPerLevel:  config.DefaultStatPointsPerLevel,
		SkillUnlockLevel:    config.DefaultSkillUnlockLevel,
		FocusXPPerMinute:    config.DefaultFocusXPPerMinute,
		FocusMinMinutes:     config.DefaultFocusMinMinutes,
		FocusSessionCapMin:  config.DefaultFocusSessionCapMinutes,
		FocusDailyCapXP:     config.DefaultFocusDailyCapXP,
		BossAttackMaxEvents: config.DefaultBossAttackMaxEvents,
	}

	statsRepo := repository.NewGormStatsRepository()
	xpRepo := repository.NewGormXPEventRepository()
	skillRepo := repository.NewGormSkillRepository()
	focusRepo := repository.NewGormFocusRepository()

	locker := service.NewUserLocker()
	progression := service.NewProgressionService(db, statsRepo, xpRepo, skillRepo, locker, cfg)
	focus := service.NewFocusService(db, focusRepo, xpRepo, progression, locker, cfg)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	heroHandler := handlers.NewHeroHandler(progression, testLogger)
	focusHandler := handlers.NewFocusHandler(focus, testLogger)

	router := chi.NewRouter()
	router.Use(middleware.DevAuthMiddleware())
	router.Get("/api/v1/hero", heroHandler.GetHero)
	router.Post("/api/v1/hero/allocate", heroHandler.Allocate)
	router.Get("/api/v1/ranks", heroHandler.GetRanks)
	router.Post("/api/v1/focus/start", focusHandler.Start)
	router.Post("/api/v1/focus/stop", focusHandler.Stop)
	return router
}

// doRequest はJSONリクエストを組み立ててルーターに投げます
func doRequest(t *testing.T, router *chi.Mux, method, path string, body interface{}, userID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reqBody = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != nil {
		req.Header.Set("X-User-ID", userID.String())
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeError はエラーレスポンスのコード部分を取り出します
func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var errResp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, rr, &errResp)
	return errResp.Error.Code
}

// decodeBody はレスポンスボディを指定の型にデコードします
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dest),
		"Failed to decode response body: %s", rr.Body.String())
}
