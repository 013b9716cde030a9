package service

import (
	"context"
	"errors"
	"time"

	"go_5_hero_quest/internal/config"
	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FocusService はフォーカスセッションの状態機械です。
// ユーザーごとにアクティブなセッションは高々1つで、ロック下の
// 「アクティブ確認 → 作成」により保証します。
type FocusService interface {
	Start(ctx context.Context, userID uuid.UUID, req *model.FocusStartRequest) (*model.FocusSession, error)
	Stop(ctx context.Context, userID uuid.UUID, req *model.FocusStopRequest) (*model.FocusStopResponse, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*model.FocusSession, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*model.FocusSession, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*model.FocusSession, error)
}

type focusService struct {
	db          *gorm.DB
	focusRepo   repository.FocusRepository
	xpRepo      repository.XPEventRepository
	progression ProgressionService
	locker      *UserLocker
	cfg         *config.Config
	// now はテストで時刻を差し替えるためのフックです
	now func() time.Time
}

func NewFocusService(db *gorm.DB, focusRepo repository.FocusRepository, xpRepo repository.XPEventRepository, progression ProgressionService, locker *UserLocker, cfg *config.Config) FocusService {
	return &focusService{
		db:          db,
		focusRepo:   focusRepo,
		xpRepo:      xpRepo,
		progression: progression,
		locker:      locker,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *focusService) Start(ctx context.Context, userID uuid.UUID, req *model.FocusStartRequest) (*model.FocusSession, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	kind := model.FocusKind(req.Kind)
	if kind == "" {
		kind = model.FocusKindCoding
	}
	if !model.ValidFocusKinds[kind] {
		return nil, model.NewAppError("INVALID_FOCUS_KIND", "不明なセッション種別です。", "kind", model.ErrInvalidInput)
	}

	unlock := s.locker.Lock(userID)
	defer unlock()

	var session *model.FocusSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.focusRepo.FindActive(ctx, tx, userID)
		if err == nil {
			// 既存セッションを返さず失敗させる。継続か破棄かはクライアントの判断。
			return model.NewAppError("SESSION_ALREADY_ACTIVE", "アクティブなフォーカスセッションが既に存在します。", "", model.ErrConflict)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの確認に失敗しました。", "", err)
		}

		session = &model.FocusSession{
			SessionID: uuid.New(),
			UserID:    userID,
			Kind:      kind,
			Note:      req.Note,
			NodeID:    req.NodeID,
			StartedAt: s.now(),
		}
		if cerr := s.focusRepo.Create(ctx, tx, session); cerr != nil {
			logger.Error("Failed to create focus session", "error", cerr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの作成に失敗しました。", "", cerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Focus session started", "session_id", session.SessionID, "kind", session.Kind)
	return session, nil
}

func (s *focusService) Stop(ctx context.Context, userID uuid.UUID, req *model.FocusStopRequest) (*model.FocusStopResponse, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	var resp *model.FocusStopResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.focusRepo.FindActive(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("NO_ACTIVE_SESSION", "アクティブなフォーカスセッションがありません。", "", model.ErrConflict)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの取得に失敗しました。", "", err)
		}

		endedAt := s.now()
		duration := int(endedAt.Sub(session.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}

		awarded, aerr := s.awardFocusXP(ctx, tx, session, duration, req.SourceURL, endedAt)
		if aerr != nil {
			return aerr
		}

		session.EndedAt = &endedAt
		session.DurationSeconds = duration
		session.XPAwarded = awarded
		if serr := s.focusRepo.Save(ctx, tx, session); serr != nil {
			logger.Error("Failed to save focus session", "error", serr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの保存に失敗しました。", "", serr)
		}

		resp = &model.FocusStopResponse{
			Session:   session,
			XPAwarded: awarded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Focus session stopped",
		"session_id", resp.Session.SessionID,
		"duration_seconds", resp.Session.DurationSeconds,
		"xp_awarded", resp.XPAwarded)
	return resp, nil
}

// awardFocusXP はセッション1件分のXPを換算して付与します。
// 換算ルール: 分数 (切り捨て) × 単価。最短未満は0、セッション上限と日次上限で頭打ち。
// 上限で0になった場合はレジャーに何も追記しません。
func (s *focusService) awardFocusXP(ctx context.Context, tx *gorm.DB, session *model.FocusSession, durationSeconds int, sourceURL string, endedAt time.Time) (int, error) {
	g := s.cfg.Game

	minutes := durationSeconds / 60
	if minutes < g.FocusMinMinutes {
		return 0, nil
	}
	if minutes > g.FocusSessionCapMin {
		minutes = g.FocusSessionCapMin
	}
	amount := minutes * g.FocusXPPerMinute

	// 日次上限は「終了日」のフォーカスXP合計に対して適用する
	dayStart := time.Date(endedAt.Year(), endedAt.Month(), endedAt.Day(), 0, 0, 0, 0, endedAt.Location())
	todayXP, err := s.xpRepo.SumKindInRange(ctx, tx, session.UserID, model.XPKindFocusSession, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return 0, model.NewAppError("INTERNAL_SERVER_ERROR", "フォーカスXPの集計に失敗しました。", "", err)
	}
	remaining := g.FocusDailyCapXP - todayXP
	if remaining <= 0 {
		return 0, nil
	}
	if amount > remaining {
		amount = remaining
	}

	_, _, err = s.progression.AwardXPEventInTx(ctx, tx, session.UserID, AwardParams{
		Kind:       model.XPKindFocusSession,
		Amount:     amount,
		SourceType: "focus_session",
		SourceID:   session.SessionID.String(),
		SourceURL:  sourceURL,
		Metadata: map[string]any{
			"kind":             string(session.Kind),
			"duration_seconds": durationSeconds,
		},
		OccurredAt: &endedAt,
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *focusService) Cancel(ctx context.Context, userID uuid.UUID) (*model.FocusSession, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	var session *model.FocusSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.focusRepo.FindActive(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("NO_ACTIVE_SESSION", "アクティブなフォーカスセッションがありません。", "", model.ErrConflict)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの取得に失敗しました。", "", err)
		}

		endedAt := s.now()
		session.EndedAt = &endedAt
		session.Canceled = true
		session.DurationSeconds = int(endedAt.Sub(session.StartedAt).Seconds())
		// キャンセルはXPゼロのまま終了
		if serr := s.focusRepo.Save(ctx, tx, session); serr != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの保存に失敗しました。", "", serr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Focus session canceled", "session_id", session.SessionID)
	return session, nil
}

func (s *focusService) GetActive(ctx context.Context, userID uuid.UUID) (*model.FocusSession, error) {
	session, err := s.focusRepo.FindActive(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("NO_ACTIVE_SESSION", "アクティブなフォーカスセッションがありません。", "", model.ErrNotFound)
		}
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "セッションの取得に失敗しました。", "", err)
	}
	return session, nil
}

func (s *focusService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*model.FocusSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	sessions, err := s.focusRepo.FindByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "セッション一覧の取得に失敗しました。", "", err)
	}
	return sessions, nil
}
