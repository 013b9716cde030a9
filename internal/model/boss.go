package model

import (
	"time"

	"github.com/google/uuid"
)

// BossStatus はボス討伐の状態です
type BossStatus string

const (
	BossStatusActive   BossStatus = "active"
	BossStatusDefeated BossStatus = "defeated"
)

// BossRun はユーザーごとのダメージシンクです。
// アクティブなボスは同時に1体のみ。hp_current は攻撃でのみ減少し、
// 0 に達すると defeated に遷移して以後の攻撃を受け付けません。
type BossRun struct {
	BossID uuid.UUID `gorm:"type:uuid;primaryKey" json:"boss_id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_boss_user_status" json:"user_id"`

	Name string `gorm:"type:varchar(128);not null" json:"name"`
	Rank Rank   `gorm:"type:varchar(1);not null;default:'E'" json:"rank"`

	HPMax     int `gorm:"not null" json:"hp_max"`
	HPCurrent int `gorm:"not null" json:"hp_current"`

	Status BossStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_boss_user_status" json:"status"`

	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	DefeatedAt *time.Time `json:"defeated_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (BossRun) TableName() string {
	return "boss_runs"
}

// BossAttack は1回の攻撃の記録です。消費されたXPイベントには
// この攻撃のIDが刻印されます (刻印は一度きり)。
type BossAttack struct {
	AttackID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"attack_id"`
	BossID     uuid.UUID `gorm:"type:uuid;not null;index" json:"boss_id"`
	Damage     int       `gorm:"not null" json:"damage"`
	EventsUsed int       `gorm:"not null" json:"events_used"`
	CreatedAt  time.Time `json:"created_at"`
}

func (BossAttack) TableName() string {
	return "boss_attacks"
}

// BossAttackRequest は攻撃リクエストDTO
type BossAttackRequest struct {
	MaxEvents int `json:"max_events" validate:"min=0,max=1000"`
}

// BossAttackResponse は攻撃結果
type BossAttackResponse struct {
	Boss        *BossRun `json:"boss"`
	Damage      int      `json:"damage"`
	EventsUsed  int      `json:"events_used"`
	TotalDamage int      `json:"total_damage"`
	Defeated    bool     `json:"defeated"`
	BonusXP     int      `json:"bonus_xp"`
}
