// internal/service/focus_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestFocus は時刻を差し替え可能なフォーカスサービスを組み立てます
func newTestFocus(db *gorm.DB) (*focusService, ProgressionService) {
	progression, locker, cfg := newTestProgression(db)
	fs := NewFocusService(
		db,
		repository.NewGormFocusRepository(),
		repository.NewGormXPEventRepository(),
		progression,
		locker,
		cfg,
	).(*focusService)
	return fs, progression
}

func Test_focusService_StartStop(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fs, _ := newTestFocus(db)
	userID := uuid.New()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return base }

	t.Run("正常系: セッション開始", func(t *testing.T) {
		session, err := fs.Start(ctx, userID, &model.FocusStartRequest{Kind: "coding", Note: "リファクタリング"})
		require.NoError(t, err)
		assert.Equal(t, model.FocusKindCoding, session.Kind)
		assert.Nil(t, session.EndedAt)
	})

	t.Run("異常系: アクティブ中の再開始は競合", func(t *testing.T) {
		_, err := fs.Start(ctx, userID, &model.FocusStartRequest{})
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("正常系: 30分で停止すると60XP", func(t *testing.T) {
		fs.now = func() time.Time { return base.Add(30 * time.Minute) }
		resp, err := fs.Stop(ctx, userID, &model.FocusStopRequest{})
		require.NoError(t, err)
		assert.Equal(t, 60, resp.XPAwarded)
		assert.Equal(t, 30*60, resp.Session.DurationSeconds)
		require.NotNil(t, resp.Session.EndedAt)
		assert.False(t, resp.Session.Canceled)
	})

	t.Run("異常系: アクティブが無い状態の停止", func(t *testing.T) {
		_, err := fs.Stop(ctx, userID, &model.FocusStopRequest{})
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("異常系: 不明なセッション種別", func(t *testing.T) {
		_, err := fs.Start(ctx, userID, &model.FocusStartRequest{Kind: "gaming"})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func Test_focusService_MinimumDuration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fs, _ := newTestFocus(db)
	userID := uuid.New()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return base }

	_, err := fs.Start(ctx, userID, &model.FocusStartRequest{})
	require.NoError(t, err)

	// 最短5分未満はセッション完了扱いのままXPゼロ
	fs.now = func() time.Time { return base.Add(4 * time.Minute) }
	resp, err := fs.Stop(ctx, userID, &model.FocusStopRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.XPAwarded)
	require.NotNil(t, resp.Session.EndedAt)
}

func Test_focusService_SessionCap(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fs, _ := newTestFocus(db)
	userID := uuid.New()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return base }

	_, err := fs.Start(ctx, userID, &model.FocusStartRequest{})
	require.NoError(t, err)

	// 3時間のセッションでも換算は120分で頭打ち → 240XP
	fs.now = func() time.Time { return base.Add(3 * time.Hour) }
	resp, err := fs.Stop(ctx, userID, &model.FocusStopRequest{})
	require.NoError(t, err)
	assert.Equal(t, 240, resp.XPAwarded)
}

func Test_focusService_DailyCap(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fs, progression := newTestFocus(db)
	userID := uuid.New()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	// 同日に既に280XP分のフォーカスを計上しておく
	occurred := base.Add(-2 * time.Hour)
	event := &model.XPEvent{
		EventID:    uuid.New(),
		UserID:     userID,
		Kind:       model.XPKindFocusSession,
		Amount:     280,
		OccurredAt: &occurred,
		CreatedAt:  occurred,
	}
	require.NoError(t, db.Create(event).Error)

	fs.now = func() time.Time { return base }
	_, err := fs.Start(ctx, userID, &model.FocusStartRequest{})
	require.NoError(t, err)

	// 30分 (60XP相当) 停止しても、日次上限300までの残り20しか付かない
	fs.now = func() time.Time { return base.Add(30 * time.Minute) }
	resp, err := fs.Stop(ctx, userID, &model.FocusStopRequest{})
	require.NoError(t, err)
	assert.Equal(t, 20, resp.XPAwarded)

	// 上限到達後のセッションはXPゼロ
	fs.now = func() time.Time { return base.Add(time.Hour) }
	_, err = fs.Start(ctx, userID, &model.FocusStartRequest{})
	require.NoError(t, err)
	fs.now = func() time.Time { return base.Add(2 * time.Hour) }
	resp, err = fs.Stop(ctx, userID, &model.FocusStopRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.XPAwarded)

	// レジャーの合計は日次上限ちょうどで止まっている
	stats, err := progression.GetHero(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 300, stats.XP)
}

func Test_focusService_Cancel(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fs, _ := newTestFocus(db)
	userID := uuid.New()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return base }

	_, err := fs.Start(ctx, userID, &model.FocusStartRequest{})
	require.NoError(t, err)

	t.Run("正常系: キャンセルはXPゼロで終了", func(t *testing.T) {
		fs.now = func() time.Time { return base.Add(time.Hour) }
		session, err := fs.Cancel(ctx, userID)
		require.NoError(t, err)
		assert.True(t, session.Canceled)
		assert.Equal(t, 0, session.XPAwarded)
	})

	t.Run("異常系: キャンセル後はアクティブなし", func(t *testing.T) {
		_, err := fs.GetActive(ctx, userID)
		assert.ErrorIs(t, err, model.ErrNotFound)

		_, err = fs.Cancel(ctx, userID)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("正常系: キャンセル後は新規開始できる", func(t *testing.T) {
		_, err := fs.Start(ctx, userID, &model.FocusStartRequest{Kind: "learning"})
		require.NoError(t, err)
	})
}

func Test_focusService_List(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	fs, _ := newTestFocus(db)
	userID := uuid.New()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		fs.now = func() time.Time { return start }
		_, err := fs.Start(ctx, userID, &model.FocusStartRequest{})
		require.NoError(t, err)
		fs.now = func() time.Time { return start.Add(10 * time.Minute) }
		_, err = fs.Stop(ctx, userID, &model.FocusStopRequest{})
		require.NoError(t, err)
	}

	sessions, err := fs.List(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	// 新しい順
	assert.True(t, sessions[0].StartedAt.After(sessions[2].StartedAt))
}
