package model

import (
	"time"

	"github.com/google/uuid"
)

// FocusKind はフォーカスセッションの種別です
type FocusKind string

const (
	FocusKindCoding    FocusKind = "coding"
	FocusKindLearning  FocusKind = "learning"
	FocusKindDebugging FocusKind = "debugging"
	FocusKindReading   FocusKind = "reading"
	FocusKindReview    FocusKind = "review"
	FocusKindInterview FocusKind = "interview"
)

// ValidFocusKinds はバリデーション用の種別一覧です
var ValidFocusKinds = map[FocusKind]bool{
	FocusKindCoding:    true,
	FocusKindLearning:  true,
	FocusKindDebugging: true,
	FocusKindReading:   true,
	FocusKindReview:    true,
	FocusKindInterview: true,
}

// FocusSession はタイマー付きの排他的な作業区間です。
// ユーザーごとにアクティブ (ended_at が NULL かつ canceled=false) な
// セッションは同時に1つだけ存在できます。stop か cancel のどちらか一方で
// 終了した後は不変の履歴になります。
type FocusSession struct {
	SessionID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_focus_user_active" json:"user_id"`
	Kind      FocusKind  `gorm:"type:varchar(16);not null;default:'coding'" json:"kind"`
	Note      string     `gorm:"type:varchar(256);not null;default:''" json:"note"`
	NodeID    *uuid.UUID `gorm:"type:uuid" json:"skill_node_id"`

	StartedAt time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt   *time.Time `gorm:"index:idx_focus_user_active" json:"ended_at"`
	Canceled  bool       `gorm:"not null;default:false" json:"canceled"`

	DurationSeconds int `gorm:"not null;default:0" json:"duration_seconds"`
	XPAwarded       int `gorm:"not null;default:0" json:"xp_awarded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FocusSession) TableName() string {
	return "focus_sessions"
}

// FocusStartRequest はセッション開始のリクエストDTO
type FocusStartRequest struct {
	Kind   string     `json:"kind" validate:"omitempty,max=16"`
	Note   string     `json:"note" validate:"omitempty,max=256"`
	NodeID *uuid.UUID `json:"skill_node_id"`
}

// FocusStopRequest はセッション終了のリクエストDTO
type FocusStopRequest struct {
	SourceURL string `json:"source_url" validate:"omitempty,url,max=512"`
}

// FocusStopResponse は終了したセッションと実際に付与されたXP
type FocusStopResponse struct {
	Session   *FocusSession `json:"session"`
	XPAwarded int           `json:"xp_awarded"`
}
