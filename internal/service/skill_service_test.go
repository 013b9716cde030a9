// internal/service/skill_service_test.go
package service

import (
	"context"
	"testing"

	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestSkill(t *testing.T, db *gorm.DB) (SkillService, ProgressionService) {
	t.Helper()
	progression, locker, cfg := newTestProgression(db)
	treeRepo := repository.NewGormSkillTreeRepository()
	require.NoError(t, SeedSkillTree(context.Background(), db, treeRepo))
	svc := NewSkillService(db, treeRepo, repository.NewGormSkillRepository(), progression, locker, cfg)
	return svc, progression
}

func Test_validateSeed(t *testing.T) {
	t.Run("正常系: デフォルト定義は妥当", func(t *testing.T) {
		assert.NoError(t, validateSeed(defaultSkillTree))
	})

	t.Run("異常系: 未知の前提コード", func(t *testing.T) {
		bad := []seedTrack{{Code: "t", Title: "t", Nodes: []seedNode{
			{Code: "a", Title: "a", Prereqs: []string{"missing"}},
		}}}
		assert.Error(t, validateSeed(bad))
	})

	t.Run("異常系: 前提の循環", func(t *testing.T) {
		bad := []seedTrack{{Code: "t", Title: "t", Nodes: []seedNode{
			{Code: "a", Title: "a", Prereqs: []string{"b"}},
			{Code: "b", Title: "b", Prereqs: []string{"a"}},
		}}}
		assert.Error(t, validateSeed(bad))
	})

	t.Run("異常系: ノードコードの重複", func(t *testing.T) {
		bad := []seedTrack{{Code: "t", Title: "t", Nodes: []seedNode{
			{Code: "a", Title: "a"},
			{Code: "a", Title: "a2"},
		}}}
		assert.Error(t, validateSeed(bad))
	})
}

func Test_skillService_GetTree(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newTestSkill(t, db)
	userID := uuid.New()

	tree, err := svc.GetTree(ctx, userID)
	require.NoError(t, err)
	require.Len(t, tree, 4)

	states := map[string]model.NodeState{}
	for _, track := range tree {
		for _, node := range track.Nodes {
			states[node.Code] = node.State
		}
	}

	// 前提なしは最初から取得可能、前提ありはロック
	assert.Equal(t, model.NodeStateAvailable, states["http-basics"])
	assert.Equal(t, model.NodeStateAvailable, states["sql"])
	assert.Equal(t, model.NodeStateLocked, states["rest-api"])
	assert.Equal(t, model.NodeStateLocked, states["async-jobs"])
}

func Test_skillService_ActivateNode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newTestSkill(t, db)
	userID := uuid.New()

	httpNode := seedNodeID("http-basics")
	restNode := seedNodeID("rest-api")

	t.Run("異常系: 存在しないノード", func(t *testing.T) {
		_, err := svc.ActivateNode(ctx, userID, uuid.New())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("異常系: 前提未達のノードはロック", func(t *testing.T) {
		_, err := svc.ActivateNode(ctx, userID, restNode)
		assert.ErrorIs(t, err, model.ErrPolicy)
	})

	t.Run("正常系: 前提なしのノードを取得", func(t *testing.T) {
		skill, err := svc.ActivateNode(ctx, userID, httpNode)
		require.NoError(t, err)
		assert.Equal(t, "HTTPの基礎", skill.Name)
		assert.Equal(t, "backend", skill.Category)
		assert.Equal(t, 0, skill.Level)
		assert.Equal(t, model.SkillStatusLearning, skill.Status)
	})

	t.Run("異常系: 二重取得は競合", func(t *testing.T) {
		_, err := svc.ActivateNode(ctx, userID, httpNode)
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("正常系: 前提を閾値まで上げると解放される", func(t *testing.T) {
		skills, err := svc.ListSkills(ctx, userID)
		require.NoError(t, err)
		require.Len(t, skills, 1)

		// 閾値未満ではまだロック
		_, err = svc.UpgradeSkill(ctx, userID, skills[0].SkillID, &model.UpgradeSkillRequest{NewLevel: 19})
		require.NoError(t, err)
		_, err = svc.ActivateNode(ctx, userID, restNode)
		assert.ErrorIs(t, err, model.ErrPolicy)

		_, err = svc.UpgradeSkill(ctx, userID, skills[0].SkillID, &model.UpgradeSkillRequest{NewLevel: 20})
		require.NoError(t, err)
		skill, err := svc.ActivateNode(ctx, userID, restNode)
		require.NoError(t, err)
		assert.Equal(t, "REST API設計", skill.Name)
	})
}

func Test_skillService_UpgradeSkill(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, progression := newTestSkill(t, db)
	userID := uuid.New()

	skill, err := svc.CreateSkill(ctx, userID, &model.CreateSkillRequest{Name: "Go", Category: "backend", Level: 10})
	require.NoError(t, err)

	t.Run("異常系: ダウングレードは拒否", func(t *testing.T) {
		_, err := svc.UpgradeSkill(ctx, userID, skill.SkillID, &model.UpgradeSkillRequest{NewLevel: 5})
		assert.ErrorIs(t, err, model.ErrPolicy)
	})

	t.Run("異常系: 存在しないスキル", func(t *testing.T) {
		_, err := svc.UpgradeSkill(ctx, userID, uuid.New(), &model.UpgradeSkillRequest{NewLevel: 50})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("正常系: 上げ幅に応じたXPが付く", func(t *testing.T) {
		upgraded, err := svc.UpgradeSkill(ctx, userID, skill.SkillID, &model.UpgradeSkillRequest{NewLevel: 50})
		require.NoError(t, err)
		assert.Equal(t, 50, upgraded.Level)
		assert.Equal(t, model.SkillStatusPracticing, upgraded.Status)

		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		// (50-10) * 2
		assert.Equal(t, 80, stats.XP)
	})

	t.Run("正常系: 同じ引き上げの再送はXPを重複させない", func(t *testing.T) {
		_, err := svc.UpgradeSkill(ctx, userID, skill.SkillID, &model.UpgradeSkillRequest{NewLevel: 50})
		require.NoError(t, err)
		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 80, stats.XP)
	})

	t.Run("正常系: 習熟到達でボーナスが付く", func(t *testing.T) {
		upgraded, err := svc.UpgradeSkill(ctx, userID, skill.SkillID, &model.UpgradeSkillRequest{NewLevel: 85})
		require.NoError(t, err)
		assert.Equal(t, model.SkillStatusMastered, upgraded.Status)

		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		// 80 + (85-50)*2 + 習熟ボーナス100
		assert.Equal(t, 250, stats.XP)
		assert.Equal(t, int64(1), statsMasteredCount(t, db, userID))
	})

	t.Run("正常系: 習熟後の引き上げはボーナスなし", func(t *testing.T) {
		_, err := svc.UpgradeSkill(ctx, userID, skill.SkillID, &model.UpgradeSkillRequest{NewLevel: 90})
		require.NoError(t, err)
		stats, err := progression.GetHero(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 260, stats.XP)
	})

	t.Run("正常系: 上限100まで引き上げられる", func(t *testing.T) {
		upgraded, err := svc.UpgradeSkill(ctx, userID, skill.SkillID, &model.UpgradeSkillRequest{NewLevel: 100})
		require.NoError(t, err)
		assert.Equal(t, 100, upgraded.Level)
	})
}

func statsMasteredCount(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.XPEvent{}).
		Where("user_id = ? AND kind = ?", userID, model.XPKindSkillMastered).
		Count(&count).Error)
	return count
}
