// internal/service/leveling_test.go
package service

import (
	"testing"

	"go_5_hero_quest/internal/model"

	"github.com/stretchr/testify/assert"
)

func Test_XPRequiredToReachLevel(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  int
	}{
		{"レベル1は0XP", 1, 0},
		{"レベル2は100XP", 2, 100},
		{"レベル3は300XP", 3, 300},
		{"レベル4は600XP", 4, 600},
		{"レベル10は4500XP", 10, 4500},
		{"レベル0以下は0XP", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, XPRequiredToReachLevel(tt.level))
		})
	}
}

func Test_LevelForXP(t *testing.T) {
	tests := []struct {
		name    string
		totalXP int
		want    int
	}{
		{"0XPはレベル1", 0, 1},
		{"99XPはレベル1", 99, 1},
		{"100XPはレベル2", 100, 2},
		{"299XPはレベル2", 299, 2},
		{"300XPはレベル3", 300, 3},
		{"600XPはレベル4", 600, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelForXP(tt.totalXP))
		})
	}
}

// 閾値関数と逆引きが一致していることの確認
func Test_LevelForXP_RoundTrip(t *testing.T) {
	for level := 1; level <= 50; level++ {
		xp := XPRequiredToReachLevel(level)
		assert.Equal(t, level, LevelForXP(xp), "level %d boundary", level)
		if level > 1 {
			assert.Equal(t, level-1, LevelForXP(xp-1), "level %d boundary minus one", level)
		}
	}
}

func Test_XPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPToNextLevel(1))
	assert.Equal(t, 500, XPToNextLevel(5))
	assert.Equal(t, 100, XPToNextLevel(0)) // 不正値はレベル1扱い
}

func Test_StatPointsGrantedForLevel(t *testing.T) {
	assert.Equal(t, 0, StatPointsGrantedForLevel(1, 5))
	assert.Equal(t, 5, StatPointsGrantedForLevel(2, 5))
	assert.Equal(t, 45, StatPointsGrantedForLevel(10, 5))
}

func Test_RankForDevScore(t *testing.T) {
	tests := []struct {
		name     string
		devScore int
		want     model.Rank
	}{
		{"0はE", 0, model.RankE},
		{"499はE", 499, model.RankE},
		{"500はD", 500, model.RankD},
		{"1500はC", 1500, model.RankC},
		{"3000はB", 3000, model.RankB},
		{"6000はA", 6000, model.RankA},
		{"10000はS", 10000, model.RankS},
		{"99999はS", 99999, model.RankS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RankForDevScore(tt.devScore))
		})
	}
}

func Test_DevScore(t *testing.T) {
	// total_xp + avg_skill*5 + tasks*20 + mastered*100
	assert.Equal(t, 0, DevScore(0, 0, 0, 0))
	assert.Equal(t, 1000, DevScore(1000, 0, 0, 0))
	assert.Equal(t, 1000+50*5+3*20+2*100, DevScore(1000, 50, 3, 2))
}
