package model

import (
	"time"

	"github.com/google/uuid"
)

// SkillTrack は技術領域ごとのスキルツリーのまとまりです (参照データ、不変)
type SkillTrack struct {
	TrackID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"track_id"`
	Code      string    `gorm:"type:varchar(32);unique;not null" json:"code"`
	Title     string    `gorm:"type:varchar(64);not null" json:"title"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

func (SkillTrack) TableName() string {
	return "skill_tracks"
}

// SkillNode はスキルツリーのノードです (参照データ、不変)。
// PrerequisiteIDs はノードIDの集合で、トラック内でDAGを構成します。
// 非循環性はシードのロード時に検証され、リクエスト時には検証しません。
type SkillNode struct {
	NodeID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"node_id"`
	TrackID     uuid.UUID `gorm:"type:uuid;not null;index" json:"track_id"`
	Code        string    `gorm:"type:varchar(64);unique;not null" json:"code"`
	Title       string    `gorm:"type:varchar(128);not null" json:"title"`
	Description string    `gorm:"not null;default:''" json:"description"`
	MaxLevel    int       `gorm:"not null;default:100" json:"max_level"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`

	PrerequisiteIDs []uuid.UUID `gorm:"serializer:json" json:"prerequisites"`

	Track *SkillTrack `gorm:"foreignKey:TrackID" json:"-"`
}

func (SkillNode) TableName() string {
	return "skill_nodes"
}

// SkillStatus は所持スキルの習熟ステータスです
type SkillStatus string

const (
	SkillStatusLearning   SkillStatus = "learning"
	SkillStatusPracticing SkillStatus = "practicing"
	SkillStatusMastered   SkillStatus = "mastered"
)

// SkillStatusForLevel はレベル帯からステータスを返します。
// ダウングレードは upgrade 側で拒否されるため、ステータスが後退することはない。
func SkillStatusForLevel(level int) SkillStatus {
	switch {
	case level >= 80:
		return SkillStatusMastered
	case level >= 40:
		return SkillStatusPracticing
	default:
		return SkillStatusLearning
	}
}

// Skill はユーザーの所持スキルです。
// ノード由来 (NodeID あり) と自由入力 (NodeID なし) の両方を許します。
type Skill struct {
	SkillID  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"skill_id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_skill_user_node" json:"user_id"`
	NodeID   *uuid.UUID `gorm:"type:uuid;index:idx_skill_user_node" json:"node_id"`
	Category string     `gorm:"type:varchar(64);not null;default:''" json:"category"`
	Name     string     `gorm:"type:varchar(128);not null" json:"name"`
	Level    int        `gorm:"not null;default:0" json:"level"`

	Status SkillStatus `gorm:"type:varchar(16);not null;default:'learning'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Node *SkillNode `gorm:"foreignKey:NodeID" json:"-"`
}

func (Skill) TableName() string {
	return "skills"
}

// NodeState はユーザーから見たツリーノードの状態です
type NodeState string

const (
	NodeStateLocked    NodeState = "locked"    // 前提条件を満たしていない
	NodeStateAvailable NodeState = "available" // 解放済みだが未取得
	NodeStateOwned     NodeState = "owned"     // 取得済み
)

// SkillNodeView はノードの参照データにユーザーの進行状態を重ねたビューです
type SkillNodeView struct {
	*SkillNode
	State   NodeState  `json:"state"`
	SkillID *uuid.UUID `json:"skill_id"`
	Level   int        `json:"level"`
}

// SkillTrackView はトラックとその配下ノードのビューです
type SkillTrackView struct {
	*SkillTrack
	Nodes []*SkillNodeView `json:"nodes"`
}

// CreateSkillRequest は自由入力スキル作成のリクエストDTO
type CreateSkillRequest struct {
	Category string `json:"category" validate:"omitempty,max=64"`
	Name     string `json:"name" validate:"required,min=1,max=128"`
	Level    int    `json:"level" validate:"min=0,max=100"`
}

// UpgradeSkillRequest はスキルレベル更新のリクエストDTO
type UpgradeSkillRequest struct {
	NewLevel int `json:"new_level" validate:"min=0,max=100"`
}
