// internal/service/boss_service_test.go
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

func newTestBoss(db *gorm.DB) (*bossService, ProgressionService) {
	progression, locker, cfg := newTestProgression(db)
	bs := NewBossService(
		db,
		repository.NewGormBossRepository(),
		repository.NewGormXPEventRepository(),
		repository.NewGormStatsRepository(),
		progression,
		locker,
		cfg,
	).(*bossService)
	return bs, progression
}

func Test_bossService_GetBoss(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	bs, _ := newTestBoss(db)
	userID := uuid.New()

	t.Run("正常系: 初回はランクEのボスが湧く", func(t *testing.T) {
		boss, err := bs.GetBoss(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, model.RankE, boss.Rank)
		assert.Equal(t, "リグレッションスライム", boss.Name)
		// レベル1: 1200 + 40*1
		assert.Equal(t, 1240, boss.HPMax)
		assert.Equal(t, boss.HPMax, boss.HPCurrent)
		assert.Equal(t, model.BossStatusActive, boss.Status)
	})

	t.Run("正常系: 2回目は同じボスを返す", func(t *testing.T) {
		first, err := bs.GetBoss(ctx, userID)
		require.NoError(t, err)
		second, err := bs.GetBoss(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first.BossID, second.BossID)
	})
}

func Test_bossService_Attack(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	bs, progression := newTestBoss(db)
	userID := uuid.New()

	// ボスを先に湧かせてから、消費対象のイベントを積む
	bs.now = func() time.Time { return time.Now().Add(-time.Hour) }
	boss, err := bs.GetBoss(ctx, userID)
	require.NoError(t, err)
	hpStart := boss.HPCurrent

	for _, award := range []struct {
		kind   model.XPEventKind
		amount int
	}{
		{model.XPKindWorkout, 40},
		{model.XPKindTaskComplete, 60},
		{model.XPKindLearningLog, 20},
	} {
		_, _, err := progression.AwardXPEvent(ctx, userID, AwardParams{Kind: award.kind, Amount: award.amount})
		require.NoError(t, err)
	}

	t.Run("正常系: 上限2件なら古い順に2件だけ消費", func(t *testing.T) {
		resp, err := bs.Attack(ctx, userID, &model.BossAttackRequest{MaxEvents: 2})
		require.NoError(t, err)
		assert.Equal(t, 100, resp.Damage)
		assert.Equal(t, 2, resp.EventsUsed)
		assert.Equal(t, hpStart-100, resp.Boss.HPCurrent)
		assert.False(t, resp.Defeated)
	})

	t.Run("正常系: 残りの1件を消費", func(t *testing.T) {
		resp, err := bs.Attack(ctx, userID, &model.BossAttackRequest{})
		require.NoError(t, err)
		assert.Equal(t, 20, resp.Damage)
		assert.Equal(t, 1, resp.EventsUsed)
		assert.Equal(t, 120, resp.TotalDamage)
	})

	t.Run("正常系: 消費済みイベントは二度ダメージにならない", func(t *testing.T) {
		resp, err := bs.Attack(ctx, userID, &model.BossAttackRequest{})
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Damage)
		assert.Equal(t, 0, resp.EventsUsed)
		assert.Equal(t, hpStart-120, resp.Boss.HPCurrent)
	})
}

func Test_bossService_Defeat(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	bs, progression := newTestBoss(db)
	userID := uuid.New()

	// 討伐まで到達できるよう、小さなHPのボスを直接用意する
	boss := &model.BossRun{
		BossID:    uuid.New(),
		UserID:    userID,
		Name:      "リグレッションスライム",
		Rank:      model.RankE,
		HPMax:     500,
		HPCurrent: 500,
		Status:    model.BossStatusActive,
		StartedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(boss).Error)

	_, _, err := progression.AwardXPEvent(ctx, userID, AwardParams{Kind: model.XPKindTaskComplete, Amount: 600})
	require.NoError(t, err)

	t.Run("正常系: HPゼロで討伐となりボーナスが付く", func(t *testing.T) {
		resp, err := bs.Attack(ctx, userID, &model.BossAttackRequest{})
		require.NoError(t, err)
		assert.Equal(t, 600, resp.Damage)
		assert.Equal(t, 0, resp.Boss.HPCurrent)
		assert.True(t, resp.Defeated)
		assert.Equal(t, model.BossStatusDefeated, resp.Boss.Status)
		require.NotNil(t, resp.Boss.DefeatedAt)
		// ボーナス: 200 + 500/10
		assert.Equal(t, 250, resp.BonusXP)

		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 850, stats.XP)
	})

	t.Run("異常系: 討伐済みボスへの攻撃は競合", func(t *testing.T) {
		_, err := bs.Attack(ctx, userID, &model.BossAttackRequest{})
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("正常系: 次のボスを開始できる", func(t *testing.T) {
		bs.now = func() time.Time { return time.Now().Add(-time.Minute) }
		next, err := bs.NextBoss(ctx, userID)
		require.NoError(t, err)
		assert.NotEqual(t, boss.BossID, next.BossID)
		assert.Equal(t, model.BossStatusActive, next.Status)
	})

	t.Run("正常系: 討伐ボーナスは次のボスのダメージにならない", func(t *testing.T) {
		resp, err := bs.Attack(ctx, userID, &model.BossAttackRequest{})
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Damage)
		assert.Equal(t, 0, resp.EventsUsed)
	})

	t.Run("異常系: 現役ボスがいる間は次に進めない", func(t *testing.T) {
		_, err := bs.NextBoss(ctx, userID)
		assert.ErrorIs(t, err, model.ErrConflict)
	})
}
