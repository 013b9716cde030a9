package model

import (
	"time"

	"github.com/google/uuid"
)

// Rank は devスコアから導出されるランク段位です (E が最下位、S が最上位)
type Rank string

const (
	RankE Rank = "E"
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

// rankOrder はランクの前進判定用の序列です
var rankOrder = map[Rank]int{
	RankE: 0,
	RankD: 1,
	RankC: 2,
	RankB: 3,
	RankA: 4,
	RankS: 5,
}

// Less は r が other より下位のランクかどうかを返します
func (r Rank) Less(other Rank) bool {
	return rankOrder[r] < rankOrder[other]
}

// UserStats はヒーローの進行状態のキャッシュです。
// level / rank / dev_score / stat_points は XPイベントと所持スキルから
// 再計算される導出値で、レジャーへの追記のたびに同一トランザクション内で更新されます。
type UserStats struct {
	UserID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Level         int       `gorm:"not null;default:1" json:"level"`
	XP            int       `gorm:"not null;default:0" json:"xp"`
	XPToNextLevel int       `gorm:"not null;default:100" json:"xp_to_next_level"`

	// ヒーローの4属性。初期値1、割り振りでのみ増加する。
	Strength     int `gorm:"not null;default:1" json:"strength"`
	Agility      int `gorm:"not null;default:1" json:"agility"`
	Intelligence int `gorm:"not null;default:1" json:"intelligence"`
	Vitality     int `gorm:"not null;default:1" json:"vitality"`
	StatPoints   int `gorm:"not null;default:0" json:"stat_points"`

	DevScore int  `gorm:"not null;default:0" json:"dev_score"`
	Rank     Rank `gorm:"type:varchar(1);not null;default:'E'" json:"rank"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// XPEventKind はXPイベントの種別です
type XPEventKind string

const (
	XPKindWorkout       XPEventKind = "workout"
	XPKindTaskComplete  XPEventKind = "task_complete"
	XPKindSkillLevelUp  XPEventKind = "skill_level_up"
	XPKindSkillMastered XPEventKind = "skill_mastered"
	XPKindLearningLog   XPEventKind = "learning_log"
	XPKindFocusSession  XPEventKind = "focus_session"
	XPKindBossDefeat    XPEventKind = "boss_defeat"
)

// XPEvent は経験値付与の追記専用レジャーです。
// 作成後は不変で、ボス攻撃によって ConsumedByAttackID が一度だけ刻印されます。
type XPEvent struct {
	EventID uuid.UUID   `gorm:"type:uuid;primaryKey" json:"event_id"`
	UserID  uuid.UUID   `gorm:"type:uuid;not null;index:idx_xp_user_created" json:"user_id"`
	Kind    XPEventKind `gorm:"type:varchar(32);not null;index:idx_xp_user_kind" json:"kind"`
	Amount  int         `gorm:"not null" json:"amount"`

	// 「正直な」レベリング用: 付与理由の出典。source_type + source_id で冪等化する。
	SourceType string         `gorm:"type:varchar(32);not null;default:'';index:idx_xp_source" json:"source_type"`
	SourceID   string         `gorm:"type:varchar(128);not null;default:'';index:idx_xp_source" json:"source_id"`
	SourceURL  string         `gorm:"not null;default:''" json:"source_url"`
	Metadata   map[string]any `gorm:"serializer:json" json:"metadata"`

	// ボス攻撃に消費済みなら、その攻撃のID。上書きは許されない。
	ConsumedByAttackID *uuid.UUID `gorm:"type:uuid;index" json:"consumed_by_attack_id"`

	OccurredAt *time.Time `json:"occurred_at"`
	CreatedAt  time.Time  `gorm:"index:idx_xp_user_created" json:"created_at"`
}

func (XPEvent) TableName() string {
	return "xp_events"
}

// AllocateStatsRequest はステータスポイント割り振りのリクエストDTO
type AllocateStatsRequest struct {
	Strength     int `json:"strength" validate:"min=0"`
	Agility      int `json:"agility" validate:"min=0"`
	Intelligence int `json:"intelligence" validate:"min=0"`
	Vitality     int `json:"vitality" validate:"min=0"`
}

// RankThresholdResponse はランク表の1行 (読み取り専用の参照データ)
type RankThresholdResponse struct {
	Code        Rank   `json:"code"`
	Title       string `json:"title"`
	MinDevScore int    `json:"min_dev_score"`
}

// XPRulesResponse は進行ルールの読み取り専用ビュー。
// サーバー側の計算と表示が乖離しないよう、同じ定数・関数から組み立てる。
type XPRulesResponse struct {
	StatPointsPerLevel int                     `json:"stat_points_per_level"`
	XPPerSkillLevel    int                     `json:"xp_per_skill_level"`
	XPSkillMastered    int                     `json:"xp_skill_mastered"`
	XPLearningLog      int                     `json:"xp_learning_log"`
	FocusXPPerMinute   int                     `json:"focus_xp_per_minute"`
	FocusMinMinutes    int                     `json:"focus_min_minutes"`
	FocusSessionCapMin int                     `json:"focus_session_cap_minutes"`
	FocusDailyCapXP    int                     `json:"focus_daily_cap_xp"`
	SkillUnlockLevel   int                     `json:"skill_unlock_level"`
	LevelThresholds    map[int]int             `json:"level_thresholds"` // level -> 必要累積XP (先頭10レベル分)
	RankThresholds     []RankThresholdResponse `json:"rank_thresholds"`
}

// DailyXP は分析サマリの日別集計
type DailyXP struct {
	Date string `json:"date"`
	XP   int    `json:"xp"`
}

// KindXP は分析サマリの種別集計
type KindXP struct {
	Kind XPEventKind `json:"kind"`
	XP   int         `json:"xp"`
}

// AnalyticsSummaryResponse は直近30日のレジャー集計です
type AnalyticsSummaryResponse struct {
	XPByDay       []DailyXP `json:"xp_by_day"`
	XPByKind      []KindXP  `json:"xp_by_kind"`
	StreakCurrent int       `json:"streak_current"`
	StreakBest30d int       `json:"streak_best_30d"`
}
