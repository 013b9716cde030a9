// internal/service/helpers_test.go
package service

import (
	"fmt"
	"testing"

	"go_5_hero_quest/internal/config"
	"go_5_hero_quest/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB はテストごとに独立したインメモリDBを作成してマイグレーションします
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database for testing: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database for testing: %v", err)
	}
	return db
}

// testConfig はデフォルトのポリシー定数を持つテスト用設定です
func testConfig() *config.Config {
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
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpiresHours = 1
	return cfg
}

// newTestProgression はテスト用の進行サービス一式を組み立てます
func newTestProgression(db *gorm.DB) (ProgressionService, *UserLocker, *config.Config) {
	locker := NewUserLocker()
	cfg := testConfig()
	progression := NewProgressionService(
		db,
		repository.NewGormStatsRepository(),
		repository.NewGormXPEventRepository(),
		repository.NewGormSkillRepository(),
		locker,
		cfg,
	)
	return progression, locker, cfg
}
