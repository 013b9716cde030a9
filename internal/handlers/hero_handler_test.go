// internal/handlers/hero_handler_test.go
package handlers_test

import (
	"net/http"
	"testing"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeroHandler_GetHero(t *testing.T) {
	router := setupTestRouter(t)
	userID := uuid.New()

	t.Run("正常系: 初期状態のヒーローを返す", func(t *testing.T) {
		rr := doRequest(t, router, "GET", "/api/v1/hero", nil, &userID)
		require.Equal(t, http.StatusOK, rr.Code)

		var stats model.UserStats
		decodeBody(t, rr, &stats)
		assert.Equal(t, userID, stats.UserID)
		assert.Equal(t, 1, stats.Level)
		assert.Equal(t, 0, stats.XP)
		assert.Equal(t, model.RankE, stats.Rank)
		assert.Equal(t, 1, stats.Strength)
	})

	t.Run("異常系: 認証ヘッダーなし", func(t *testing.T) {
		rr := doRequest(t, router, "GET", "/api/v1/hero", nil, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rr))
	})
}

func TestHeroHandler_Allocate(t *testing.T) {
	router := setupTestRouter(t)
	userID := uuid.New()

	t.Run("異常系: ポイント不足", func(t *testing.T) {
		body := model.AllocateStatsRequest{Strength: 5}
		rr := doRequest(t, router, "POST", "/api/v1/hero/allocate", body, &userID)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "INSUFFICIENT_POINTS", decodeError(t, rr))
	})

	t.Run("異常系: 負の値はバリデーションで弾く", func(t *testing.T) {
		body := model.AllocateStatsRequest{Strength: -1}
		rr := doRequest(t, router, "POST", "/api/v1/hero/allocate", body, &userID)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("正常系: ゼロ割り振りは現在値を返す", func(t *testing.T) {
		body := model.AllocateStatsRequest{}
		rr := doRequest(t, router, "POST", "/api/v1/hero/allocate", body, &userID)
		require.Equal(t, http.StatusOK, rr.Code)

		var stats model.UserStats
		decodeBody(t, rr, &stats)
		assert.Equal(t, 0, stats.StatPoints)
	})
}

func TestHeroHandler_GetRanks(t *testing.T) {
	router := setupTestRouter(t)
	userID := uuid.New()

	rr := doRequest(t, router, "GET", "/api/v1/ranks", nil, &userID)
	require.Equal(t, http.StatusOK, rr.Code)

	var ranks []model.RankThresholdResponse
	decodeBody(t, rr, &ranks)
	require.Len(t, ranks, 6)
	assert.Equal(t, model.RankS, ranks[0].Code)
	assert.Equal(t, model.RankE, ranks[5].Code)
}
