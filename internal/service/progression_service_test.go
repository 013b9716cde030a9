// internal/service/progression_service_test.go
package service

import (
	"context"
	"testing"

	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_progressionService_AwardXPEvent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	progression, _, _ := newTestProgression(db)
	userID := uuid.New()

	t.Run("正常系: 付与でレベルとランクが再計算される", func(t *testing.T) {
		event, stats, err := progression.AwardXPEvent(ctx, userID, AwardParams{
			Kind:   model.XPKindTaskComplete,
			Amount: 250,
		})
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, 250, event.Amount)

		// 累積250XP: レベル2 (閾値100) に到達、次の1段は200XP
		assert.Equal(t, 250, stats.XP)
		assert.Equal(t, 2, stats.Level)
		assert.Equal(t, 200, stats.XPToNextLevel)
		// レベル2で5ポイント付与、未割り振り
		assert.Equal(t, 5, stats.StatPoints)
		// devスコア = 250 + タスク1件*20 = 270 → Eのまま
		assert.Equal(t, 270, stats.DevScore)
		assert.Equal(t, model.RankE, stats.Rank)
	})

	t.Run("正常系: 同じソースの再付与はスキップされる", func(t *testing.T) {
		first, stats1, err := progression.AwardXPEvent(ctx, userID, AwardParams{
			Kind:       model.XPKindWorkout,
			Amount:     100,
			SourceType: "workout",
			SourceID:   "w-1",
		})
		require.NoError(t, err)

		second, stats2, err := progression.AwardXPEvent(ctx, userID, AwardParams{
			Kind:       model.XPKindWorkout,
			Amount:     100,
			SourceType: "workout",
			SourceID:   "w-1",
		})
		require.NoError(t, err)

		assert.Equal(t, first.EventID, second.EventID)
		assert.Equal(t, stats1.XP, stats2.XP)
	})

	t.Run("異常系: 0以下のXPは拒否される", func(t *testing.T) {
		_, _, err := progression.AwardXPEvent(ctx, userID, AwardParams{
			Kind:   model.XPKindWorkout,
			Amount: 0,
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		_, _, err = progression.AwardXPEvent(ctx, userID, AwardParams{
			Kind:   model.XPKindWorkout,
			Amount: -10,
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func Test_progressionService_AllocateStatPoints(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	progression, _, _ := newTestProgression(db)
	userID := uuid.New()

	// レベル3 (累積300XP) まで進めて10ポイント確保する
	_, stats, err := progression.AwardXPEvent(ctx, userID, AwardParams{
		Kind:   model.XPKindTaskComplete,
		Amount: 300,
	})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Level)
	require.Equal(t, 10, stats.StatPoints)

	t.Run("正常系: 割り振りで属性が増えポイントが減る", func(t *testing.T) {
		stats, err := progression.AllocateStatPoints(ctx, userID, &model.AllocateStatsRequest{
			Strength:     3,
			Intelligence: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Strength)
		assert.Equal(t, 3, stats.Intelligence)
		assert.Equal(t, 1, stats.Agility)
		assert.Equal(t, 1, stats.Vitality)
		assert.Equal(t, 5, stats.StatPoints)
	})

	t.Run("正常系: ゼロ割り振りは何も変えない", func(t *testing.T) {
		stats, err := progression.AllocateStatPoints(ctx, userID, &model.AllocateStatsRequest{})
		require.NoError(t, err)
		assert.Equal(t, 5, stats.StatPoints)
	})

	t.Run("異常系: 空きポイント超過はポリシー違反", func(t *testing.T) {
		_, err := progression.AllocateStatPoints(ctx, userID, &model.AllocateStatsRequest{
			Vitality: 6,
		})
		assert.ErrorIs(t, err, model.ErrPolicy)
	})

	t.Run("異常系: 負の割り振りは拒否される", func(t *testing.T) {
		_, err := progression.AllocateStatPoints(ctx, userID, &model.AllocateStatsRequest{
			Strength: -1,
			Agility:  2,
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("正常系: 割り振り済みポイントは再計算で復活しない", func(t *testing.T) {
		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.StatPoints)
		assert.Equal(t, 4, stats.Strength)
	})
}

func Test_progressionService_RankNeverRegresses(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	progression, _, _ := newTestProgression(db)
	statsRepo := repository.NewGormStatsRepository()
	userID := uuid.New()

	// XPを稼いでDランク (devスコア500以上) に到達させる
	_, stats, err := progression.AwardXPEvent(ctx, userID, AwardParams{
		Kind:   model.XPKindFocusSession,
		Amount: 600,
	})
	require.NoError(t, err)
	require.Equal(t, model.RankD, stats.Rank)

	// ランクを手動でAへ引き上げても、再計算で後退しない
	stats.Rank = model.RankA
	require.NoError(t, statsRepo.Save(ctx, db, stats))

	after, err := progression.GetHero(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.RankA, after.Rank)
}

func Test_progressionService_AnalyticsSummary(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	progression, _, _ := newTestProgression(db)
	userID := uuid.New()

	_, _, err := progression.AwardXPEvent(ctx, userID, AwardParams{
		Kind:   model.XPKindWorkout,
		Amount: 120,
	})
	require.NoError(t, err)
	_, _, err = progression.AwardXPEvent(ctx, userID, AwardParams{
		Kind:   model.XPKindLearningLog,
		Amount: 25,
	})
	require.NoError(t, err)

	summary, err := progression.AnalyticsSummary(ctx, userID)
	require.NoError(t, err)

	require.Len(t, summary.XPByDay, 1)
	assert.Equal(t, 145, summary.XPByDay[0].XP)
	assert.Len(t, summary.XPByKind, 2)
	assert.Equal(t, 1, summary.StreakCurrent)
	assert.Equal(t, 1, summary.StreakBest30d)
}

func Test_progressionService_ReferenceData(t *testing.T) {
	db := setupTestDB(t)
	progression, _, cfg := newTestProgression(db)

	t.Run("正常系: ランク表は降順で6段", func(t *testing.T) {
		table := progression.RankTable()
		require.Len(t, table, 6)
		assert.Equal(t, model.RankS, table[0].Code)
		assert.Equal(t, 10000, table[0].MinDevScore)
		assert.Equal(t, model.RankE, table[5].Code)
	})

	t.Run("正常系: XPルールは設定値と一致する", func(t *testing.T) {
		rules := progression.XPRules()
		assert.Equal(t, cfg.Game.StatPointsPerLevel, rules.StatPointsPerLevel)
		assert.Equal(t, cfg.Game.FocusDailyCapXP, rules.FocusDailyCapXP)
		assert.Equal(t, 100, rules.LevelThresholds[2])
		assert.Equal(t, 300, rules.LevelThresholds[3])
	})
}
