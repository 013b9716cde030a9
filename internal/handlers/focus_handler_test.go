// internal/handlers/focus_handler_test.go
package handlers_test

import (
	"net/http"
	"testing"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFocusHandler_StartStop(t *testing.T) {
	router := setupTestRouter(t)
	userID := uuid.New()

	t.Run("正常系: セッション開始", func(t *testing.T) {
		body := model.FocusStartRequest{Kind: "learning", Note: "書籍"}
		rr := doRequest(t, router, "POST", "/api/v1/focus/start", body, &userID)
		require.Equal(t, http.StatusCreated, rr.Code)

		var session model.FocusSession
		decodeBody(t, rr, &session)
		assert.Equal(t, model.FocusKindLearning, session.Kind)
		assert.Nil(t, session.EndedAt)
	})

	t.Run("異常系: 二重開始は409", func(t *testing.T) {
		body := model.FocusStartRequest{}
		rr := doRequest(t, router, "POST", "/api/v1/focus/start", body, &userID)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "SESSION_ALREADY_ACTIVE", decodeError(t, rr))
	})

	t.Run("正常系: ボディなしでも停止できる", func(t *testing.T) {
		rr := doRequest(t, router, "POST", "/api/v1/focus/stop", nil, &userID)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp model.FocusStopResponse
		decodeBody(t, rr, &resp)
		require.NotNil(t, resp.Session)
		// 開始直後の停止なので最短未満でXPゼロ
		assert.Equal(t, 0, resp.XPAwarded)
		assert.NotNil(t, resp.Session.EndedAt)
	})

	t.Run("異常系: アクティブなしの停止は409", func(t *testing.T) {
		rr := doRequest(t, router, "POST", "/api/v1/focus/stop", nil, &userID)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "NO_ACTIVE_SESSION", decodeError(t, rr))
	})

	t.Run("異常系: 不正なセッション種別は400", func(t *testing.T) {
		body := model.FocusStartRequest{Kind: "gaming"}
		rr := doRequest(t, router, "POST", "/api/v1/focus/start", body, &userID)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "INVALID_FOCUS_KIND", decodeError(t, rr))
	})
}
