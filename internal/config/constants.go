// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "HeroQuestEngine"
	AppVersion = "1.0.0"
)

// デフォルト設定値
const (
	DefaultServerPort      = ":8080"
	DefaultLogLevel        = "info"
	DefaultJWTExpiresHours = 24
)

// 進行エンジンのポリシー定数のデフォルト
const (
	DefaultStatPointsPerLevel     = 5   // レベルアップごとの付与ポイント
	DefaultSkillUnlockLevel       = 20  // 前提スキルがこのレベル以上でノード解放
	DefaultFocusXPPerMinute       = 2   // フォーカス1分あたりのXP
	DefaultFocusMinMinutes        = 5   // これ未満のセッションはXPゼロ
	DefaultFocusSessionCapMinutes = 120 // 1セッションで換算する上限分数
	DefaultFocusDailyCapXP        = 300 // 1日のフォーカスXP上限
	DefaultBossAttackMaxEvents    = 200 // 1回の攻撃で消費するイベント数の上限
)
