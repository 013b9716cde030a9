package middleware

import (
	"context"
	"net/http"

	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/webutil"

	"github.com/google/uuid"
)

// DevAuthMiddleware は開発・テスト用の認証バイパスです。
// X-User-ID ヘッダーの値をそのまま認証済みユーザーIDとして扱います。
// auth.enabled=false の場合のみルーターに組み込まれます。
func DevAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := GetLogger(r.Context())

			idStr := r.Header.Get("X-User-ID")
			if idStr == "" {
				logger.Warn("Dev auth failed: X-User-ID header missing")
				appErr := model.NewAppError("UNAUTHORIZED", "X-User-IDヘッダーが必要です。", "", model.ErrForbidden)
				webutil.HandleError(w, logger, appErr)
				return
			}

			userID, err := uuid.Parse(idStr)
			if err != nil {
				logger.Warn("Dev auth failed: Invalid X-User-ID format", "value", idStr)
				appErr := model.NewAppError("UNAUTHORIZED", "X-User-IDの形式が正しくありません。", "", model.ErrForbidden)
				webutil.HandleError(w, logger, appErr)
				return
			}

			ctx := context.WithValue(r.Context(), model.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
