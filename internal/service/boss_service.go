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

// BossService はXPイベントをダメージとして消費するボス討伐です。
// アクティブなボスはユーザーごとに1体で、攻撃は「未消費イベントの刻印 +
// HP減算」を1トランザクションで行います。刻印は一度きりなので、
// 同じイベントが2回ダメージになることはありません。
type BossService interface {
	// GetBoss は現在のボスを返します。初回は現在のランク/レベルから生成します。
	GetBoss(ctx context.Context, userID uuid.UUID) (*model.BossRun, error)
	Attack(ctx context.Context, userID uuid.UUID, req *model.BossAttackRequest) (*model.BossAttackResponse, error)
	// NextBoss は討伐済みの場合のみ次のボスを生成します
	NextBoss(ctx context.Context, userID uuid.UUID) (*model.BossRun, error)
}

type bossService struct {
	db          *gorm.DB
	bossRepo    repository.BossRepository
	xpRepo      repository.XPEventRepository
	statsRepo   repository.StatsRepository
	progression ProgressionService
	locker      *UserLocker
	cfg         *config.Config
	now         func() time.Time
}

func NewBossService(db *gorm.DB, bossRepo repository.BossRepository, xpRepo repository.XPEventRepository, statsRepo repository.StatsRepository, progression ProgressionService, locker *UserLocker, cfg *config.Config) BossService {
	return &bossService{
		db:          db,
		bossRepo:    bossRepo,
		xpRepo:      xpRepo,
		statsRepo:   statsRepo,
		progression: progression,
		locker:      locker,
		cfg:         cfg,
		now:         time.Now,
	}
}

// bossProfile はランク/レベルからボスの名前とHPを決めます
func bossProfile(rank model.Rank, level int) (name string, hp int) {
	switch rank {
	case model.RankS:
		return "デッドラインアーキテクト", 12000 + level*150
	case model.RankA:
		return "プロダクションロード", 8000 + level*120
	case model.RankB:
		return "毒舌レビュアー", 5000 + level*90
	case model.RankC:
		return "コンテキスト喰らい", 3500 + level*70
	case model.RankD:
		return "クリティカルバグ", 2000 + level*50
	default:
		return "リグレッションスライム", 1200 + level*40
	}
}

func (s *bossService) GetBoss(ctx context.Context, userID uuid.UUID) (*model.BossRun, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	var boss *model.BossRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		boss, txErr = s.ensureActiveBoss(ctx, tx, userID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return boss, nil
}

// ensureActiveBoss はアクティブなボスを返し、いなければ生成します。
// 討伐済みのボスしかいない場合も新規生成します (初回と同じ扱い)。
func (s *bossService) ensureActiveBoss(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.BossRun, error) {
	boss, err := s.bossRepo.FindActive(ctx, tx, userID)
	if err == nil {
		return boss, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "ボスの取得に失敗しました。", "", err)
	}

	stats, err := s.progression.RecomputeInTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	name, hp := bossProfile(stats.Rank, stats.Level)
	boss = &model.BossRun{
		BossID:    uuid.New(),
		UserID:    userID,
		Name:      name,
		Rank:      stats.Rank,
		HPMax:     hp,
		HPCurrent: hp,
		Status:    model.BossStatusActive,
		StartedAt: s.now(),
	}
	if cerr := s.bossRepo.Create(ctx, tx, boss); cerr != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "ボスの生成に失敗しました。", "", cerr)
	}

	middleware.GetLogger(ctx).Info("Boss spawned",
		"user_id", userID, "boss_id", boss.BossID, "name", boss.Name, "hp", boss.HPMax)
	return boss, nil
}

func (s *bossService) Attack(ctx context.Context, userID uuid.UUID, req *model.BossAttackRequest) (*model.BossAttackResponse, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	maxEvents := req.MaxEvents
	if maxEvents <= 0 || maxEvents > s.cfg.Game.BossAttackMaxEvents {
		maxEvents = s.cfg.Game.BossAttackMaxEvents
	}

	unlock := s.locker.Lock(userID)
	defer unlock()

	// 一時的なストレージ障害に備えて1回だけ再試行する。
	// 刻印とHP減算は同一トランザクションなので、失敗時は丸ごと巻き戻っている。
	resp, err := s.attackOnce(ctx, userID, maxEvents)
	if err != nil && errors.Is(err, model.ErrInternalServer) {
		logger.Warn("Boss attack failed, retrying once", "error", err)
		resp, err = s.attackOnce(ctx, userID, maxEvents)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Boss attacked",
		"boss_id", resp.Boss.BossID,
		"damage", resp.Damage,
		"events_used", resp.EventsUsed,
		"hp_current", resp.Boss.HPCurrent,
		"defeated", resp.Defeated)
	return resp, nil
}

func (s *bossService) attackOnce(ctx context.Context, userID uuid.UUID, maxEvents int) (*model.BossAttackResponse, error) {
	var resp *model.BossAttackResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		boss, err := s.bossRepo.FindActive(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				// アクティブなボスがいない = 直近のボスは討伐済み。暗黙に次を湧かせない。
				if _, lerr := s.bossRepo.FindLatest(ctx, tx, userID); lerr == nil {
					return model.NewAppError("BOSS_ALREADY_DEFEATED", "ボスは既に討伐済みです。次のボスを開始してください。", "", model.ErrConflict)
				}
				var txErr error
				boss, txErr = s.ensureActiveBoss(ctx, tx, userID)
				if txErr != nil {
					return txErr
				}
			} else {
				return model.NewAppError("INTERNAL_SERVER_ERROR", "ボスの取得に失敗しました。", "", err)
			}
		}

		events, err := s.xpRepo.FindUnconsumed(ctx, tx, userID, boss.StartedAt, maxEvents)
		if err != nil {
			return model.NewAppError("STORAGE_ERROR", "XPイベントの取得に失敗しました。", "", errors.Join(model.ErrInternalServer, err))
		}

		attack := &model.BossAttack{
			AttackID: uuid.New(),
			BossID:   boss.BossID,
		}
		damage := 0
		eventIDs := make([]uuid.UUID, 0, len(events))
		for _, e := range events {
			if e.Amount > 0 {
				damage += e.Amount
			}
			eventIDs = append(eventIDs, e.EventID)
		}
		attack.Damage = damage
		attack.EventsUsed = len(events)

		// ダメージ0でも攻撃としては有効 (イベントが無かっただけ)
		if len(eventIDs) > 0 {
			if merr := s.xpRepo.MarkConsumed(ctx, tx, eventIDs, attack.AttackID); merr != nil {
				if errors.Is(merr, model.ErrConflict) {
					return model.NewAppError("EVENT_ALREADY_CONSUMED", "XPイベントが既に消費されています。", "", model.ErrConflict)
				}
				return model.NewAppError("STORAGE_ERROR", "XPイベントの刻印に失敗しました。", "", errors.Join(model.ErrInternalServer, merr))
			}
		}
		if cerr := s.bossRepo.CreateAttack(ctx, tx, attack); cerr != nil {
			return model.NewAppError("STORAGE_ERROR", "攻撃の記録に失敗しました。", "", errors.Join(model.ErrInternalServer, cerr))
		}

		boss.HPCurrent -= damage
		if boss.HPCurrent < 0 {
			boss.HPCurrent = 0
		}

		defeated := false
		bonusXP := 0
		if boss.HPCurrent == 0 && boss.Status == model.BossStatusActive {
			now := s.now()
			boss.Status = model.BossStatusDefeated
			boss.DefeatedAt = &now
			defeated = true

			// 討伐ボーナス: 固定200 + 最大HPの1割
			bonusXP = 200 + boss.HPMax/10
			_, _, aerr := s.progression.AwardXPEventInTx(ctx, tx, userID, AwardParams{
				Kind:       model.XPKindBossDefeat,
				Amount:     bonusXP,
				SourceType: "boss_run",
				SourceID:   boss.BossID.String(),
				Metadata: map[string]any{
					"boss_name":   boss.Name,
					"boss_rank":   string(boss.Rank),
					"boss_hp_max": boss.HPMax,
				},
				OccurredAt: &now,
			})
			if aerr != nil {
				return aerr
			}
		}

		if serr := s.bossRepo.Save(ctx, tx, boss); serr != nil {
			return model.NewAppError("STORAGE_ERROR", "ボスの保存に失敗しました。", "", errors.Join(model.ErrInternalServer, serr))
		}

		totalDamage, err := s.bossRepo.SumDamage(ctx, tx, boss.BossID)
		if err != nil {
			return model.NewAppError("STORAGE_ERROR", "ダメージ集計に失敗しました。", "", errors.Join(model.ErrInternalServer, err))
		}

		resp = &model.BossAttackResponse{
			Boss:        boss,
			Damage:      damage,
			EventsUsed:  len(events),
			TotalDamage: totalDamage,
			Defeated:    defeated,
			BonusXP:     bonusXP,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *bossService) NextBoss(ctx context.Context, userID uuid.UUID) (*model.BossRun, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	var boss *model.BossRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 現役ボスがいる間は進めない (討伐かバグ以外で消えることはない)
		if _, err := s.bossRepo.FindActive(ctx, tx, userID); err == nil {
			return model.NewAppError("CURRENT_BOSS_STILL_ACTIVE", "現在のボスがまだ討伐されていません。", "", model.ErrConflict)
		} else if !errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "ボスの確認に失敗しました。", "", err)
		}

		var txErr error
		boss, txErr = s.ensureActiveBoss(ctx, tx, userID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Next boss started", "boss_id", boss.BossID, "name", boss.Name)
	return boss, nil
}
