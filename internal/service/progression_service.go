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

// AwardParams はXP付与1件分のパラメータです
type AwardParams struct {
	Kind       model.XPEventKind
	Amount     int
	SourceType string
	SourceID   string
	SourceURL  string
	Metadata   map[string]any
	OccurredAt *time.Time
}

// ProgressionService はXPレジャーと進行キャッシュ (レベル/ランク/ポイント) を司ります。
type ProgressionService interface {
	GetHero(ctx context.Context, userID uuid.UUID) (*model.UserStats, error)
	AllocateStatPoints(ctx context.Context, userID uuid.UUID, req *model.AllocateStatsRequest) (*model.UserStats, error)
	// AwardXPEvent はユーザーロックとトランザクションを張って1件付与します
	AwardXPEvent(ctx context.Context, userID uuid.UUID, p AwardParams) (*model.XPEvent, *model.UserStats, error)
	// AwardXPEventInTx は呼び出し側のトランザクション内で付与します。
	// フォーカス/ボス/スキルの各サービスが自分のトランザクションから呼びます。
	// 呼び出し側が対象ユーザーのロックを保持していることが前提です。
	AwardXPEventInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, p AwardParams) (*model.XPEvent, *model.UserStats, error)
	RecomputeInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.UserStats, error)
	AnalyticsSummary(ctx context.Context, userID uuid.UUID) (*model.AnalyticsSummaryResponse, error)
	RankTable() []model.RankThresholdResponse
	XPRules() *model.XPRulesResponse
}

type progressionService struct {
	db        *gorm.DB
	statsRepo repository.StatsRepository
	xpRepo    repository.XPEventRepository
	skillRepo repository.SkillRepository
	locker    *UserLocker
	cfg       *config.Config
}

func NewProgressionService(db *gorm.DB, statsRepo repository.StatsRepository, xpRepo repository.XPEventRepository, skillRepo repository.SkillRepository, locker *UserLocker, cfg *config.Config) ProgressionService {
	return &progressionService{
		db:        db,
		statsRepo: statsRepo,
		xpRepo:    xpRepo,
		skillRepo: skillRepo,
		locker:    locker,
		cfg:       cfg,
	}
}

func (s *progressionService) GetHero(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	var stats *model.UserStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		stats, txErr = s.RecomputeInTx(ctx, tx, userID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *progressionService) AllocateStatPoints(ctx context.Context, userID uuid.UUID, req *model.AllocateStatsRequest) (*model.UserStats, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	// バリデータでも弾くが、エンジンの不変条件なのでサービス層でも検査する
	if req.Strength < 0 || req.Agility < 0 || req.Intelligence < 0 || req.Vitality < 0 {
		return nil, model.NewAppError("INVALID_ALLOCATION", "負の値は割り振れません。", "", model.ErrInvalidInput)
	}
	total := req.Strength + req.Agility + req.Intelligence + req.Vitality

	unlock := s.locker.Lock(userID)
	defer unlock()

	var stats *model.UserStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		stats, txErr = s.RecomputeInTx(ctx, tx, userID)
		if txErr != nil {
			return txErr
		}

		if total == 0 {
			return nil
		}
		if total > stats.StatPoints {
			logger.Warn("Allocation rejected: insufficient stat points", "requested", total, "available", stats.StatPoints)
			return model.NewAppError("INSUFFICIENT_POINTS", "空きステータスポイントが不足しています。", "", model.ErrPolicy)
		}

		// 付与と消費はロックステップ: ポイントは割り振り以外で生まれも消えもしない
		stats.Strength += req.Strength
		stats.Agility += req.Agility
		stats.Intelligence += req.Intelligence
		stats.Vitality += req.Vitality
		stats.StatPoints -= total

		return s.statsRepo.Save(ctx, tx, stats)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Stat points allocated", "total", total, "remaining", stats.StatPoints)
	return stats, nil
}

func (s *progressionService) AwardXPEvent(ctx context.Context, userID uuid.UUID, p AwardParams) (*model.XPEvent, *model.UserStats, error) {
	unlock := s.locker.Lock(userID)
	defer unlock()

	var event *model.XPEvent
	var stats *model.UserStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		event, stats, txErr = s.AwardXPEventInTx(ctx, tx, userID, p)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return event, stats, nil
}

func (s *progressionService) AwardXPEventInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, p AwardParams) (*model.XPEvent, *model.UserStats, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "kind", p.Kind)

	if p.Amount <= 0 {
		return nil, nil, model.NewAppError("INVALID_AMOUNT", "XP量は正の整数である必要があります。", "amount", model.ErrInvalidInput)
	}

	// 冪等化: 同じ外部ソースからの付与は1回きり。レジャー自体は重複排除しない。
	if p.SourceType != "" && p.SourceID != "" {
		existing, err := s.xpRepo.FindBySource(ctx, tx, userID, p.SourceType, p.SourceID)
		if err == nil {
			logger.Info("XP event already exists for source, skipping award",
				"source_type", p.SourceType, "source_id", p.SourceID)
			stats, rerr := s.RecomputeInTx(ctx, tx, userID)
			if rerr != nil {
				return nil, nil, rerr
			}
			return existing, stats, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, nil, model.NewAppError("INTERNAL_SERVER_ERROR", "XPイベントの確認に失敗しました。", "", err)
		}
	}

	event := &model.XPEvent{
		EventID:    uuid.New(),
		UserID:     userID,
		Kind:       p.Kind,
		Amount:     p.Amount,
		SourceType: p.SourceType,
		SourceID:   p.SourceID,
		SourceURL:  p.SourceURL,
		Metadata:   p.Metadata,
		OccurredAt: p.OccurredAt,
	}
	if err := s.xpRepo.Create(ctx, tx, event); err != nil {
		logger.Error("Failed to append XP event", "error", err)
		return nil, nil, model.NewAppError("INTERNAL_SERVER_ERROR", "XPイベントの作成に失敗しました。", "", err)
	}

	stats, err := s.RecomputeInTx(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("XP awarded", "amount", p.Amount, "level", stats.Level, "rank", stats.Rank)
	return event, stats, nil
}

// RecomputeInTx は進行キャッシュをレジャーと所持スキルから再導出します。
// レジャーが唯一の真実で、user_stats 行は追記のたびに無効化されるキャッシュです。
func (s *progressionService) RecomputeInTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*model.UserStats, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	stats, err := s.statsRepo.FindOrCreate(ctx, tx, userID)
	if err != nil {
		logger.Error("Failed to load user stats", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進行状態の取得に失敗しました。", "", err)
	}

	totalXP, err := s.xpRepo.SumByUser(ctx, tx, userID)
	if err != nil {
		logger.Error("Failed to sum XP ledger", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "XPの集計に失敗しました。", "", err)
	}

	// レジャーは追記専用なのでレベルは自然に単調。式変更に備えて後退だけは拒否する。
	level := LevelForXP(totalXP)
	if level < stats.Level {
		level = stats.Level
	}

	stats.XP = totalXP
	stats.Level = level
	stats.XPToNextLevel = XPToNextLevel(level)

	// ポイントは増分管理せず毎回再導出する (再計算をまたいだ二重付与なし)
	allocated := (stats.Strength - 1) + (stats.Agility - 1) + (stats.Intelligence - 1) + (stats.Vitality - 1)
	points := StatPointsGrantedForLevel(level, s.cfg.Game.StatPointsPerLevel) - allocated
	if points < 0 {
		points = 0
	}
	stats.StatPoints = points

	avgLevel, err := s.skillRepo.AvgLevel(ctx, tx, userID)
	if err != nil {
		logger.Error("Failed to compute average skill level", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "スキル集計に失敗しました。", "", err)
	}
	completedTasks, err := s.xpRepo.CountByKind(ctx, tx, userID, model.XPKindTaskComplete)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "タスク集計に失敗しました。", "", err)
	}
	masteredSkills, err := s.skillRepo.CountByStatus(ctx, tx, userID, model.SkillStatusMastered)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "スキル集計に失敗しました。", "", err)
	}

	stats.DevScore = DevScore(totalXP, int(avgLevel), completedTasks, masteredSkills)

	// ランクは前進のみ。入力式が変わっても後退させない。
	newRank := RankForDevScore(stats.DevScore)
	if stats.Rank.Less(newRank) {
		stats.Rank = newRank
	}

	if err := s.statsRepo.Save(ctx, tx, stats); err != nil {
		logger.Error("Failed to save user stats", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進行状態の保存に失敗しました。", "", err)
	}
	return stats, nil
}

func (s *progressionService) AnalyticsSummary(ctx context.Context, userID uuid.UUID) (*model.AnalyticsSummaryResponse, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windowStart := today.AddDate(0, 0, -29)

	events, err := s.xpRepo.FindSince(ctx, s.db, userID, windowStart)
	if err != nil {
		logger.Error("Failed to load XP events for analytics", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "分析データの取得に失敗しました。", "", err)
	}

	const dateLayout = "2006-01-02"
	byDay := make(map[string]int)
	byKind := make(map[model.XPEventKind]int)
	for _, e := range events {
		byDay[e.CreatedAt.Format(dateLayout)] += e.Amount
		byKind[e.Kind] += e.Amount
	}

	xpByDay := make([]model.DailyXP, 0, 30)
	for i := 29; i >= 0; i-- {
		d := today.AddDate(0, 0, -i).Format(dateLayout)
		if xp, ok := byDay[d]; ok {
			xpByDay = append(xpByDay, model.DailyXP{Date: d, XP: xp})
		}
	}

	xpByKind := make([]model.KindXP, 0, len(byKind))
	for _, kind := range []model.XPEventKind{
		model.XPKindWorkout, model.XPKindTaskComplete, model.XPKindSkillLevelUp,
		model.XPKindSkillMastered, model.XPKindLearningLog, model.XPKindFocusSession,
		model.XPKindBossDefeat,
	} {
		if xp, ok := byKind[kind]; ok {
			xpByKind = append(xpByKind, model.KindXP{Kind: kind, XP: xp})
		}
	}

	// 現在のストリーク: 今日から遡って XP>0 の日が続く限り
	streakCurrent := 0
	for i := 0; i < 30; i++ {
		d := today.AddDate(0, 0, -i).Format(dateLayout)
		if byDay[d] > 0 {
			streakCurrent++
		} else {
			break
		}
	}

	// 30日間のベストストリーク
	best, cur := 0, 0
	for i := 29; i >= 0; i-- {
		d := today.AddDate(0, 0, -i).Format(dateLayout)
		if byDay[d] > 0 {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}

	return &model.AnalyticsSummaryResponse{
		XPByDay:       xpByDay,
		XPByKind:      xpByKind,
		StreakCurrent: streakCurrent,
		StreakBest30d: best,
	}, nil
}

func (s *progressionService) RankTable() []model.RankThresholdResponse {
	table := make([]model.RankThresholdResponse, 0, len(RankThresholds))
	for _, t := range RankThresholds {
		table = append(table, model.RankThresholdResponse{
			Code:        t.Code,
			Title:       t.Title,
			MinDevScore: t.MinDevScore,
		})
	}
	return table
}

func (s *progressionService) XPRules() *model.XPRulesResponse {
	thresholds := make(map[int]int, 10)
	for level := 1; level <= 10; level++ {
		thresholds[level] = XPRequiredToReachLevel(level)
	}
	return &model.XPRulesResponse{
		StatPointsPerLevel: s.cfg.Game.StatPointsPerLevel,
		XPPerSkillLevel:    XPPerSkillLevel,
		XPSkillMastered:    XPSkillMastered,
		XPLearningLog:      XPLearningLog,
		FocusXPPerMinute:   s.cfg.Game.FocusXPPerMinute,
		FocusMinMinutes:    s.cfg.Game.FocusMinMinutes,
		FocusSessionCapMin: s.cfg.Game.FocusSessionCapMin,
		FocusDailyCapXP:    s.cfg.Game.FocusDailyCapXP,
		SkillUnlockLevel:   s.cfg.Game.SkillUnlockLevel,
		LevelThresholds:    thresholds,
		RankThresholds:     s.RankTable(),
	}
}
