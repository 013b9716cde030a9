package service

import (
	"context"
	"errors"
	"fmt"

	"go_5_hero_quest/internal/config"
	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SkillService はスキルツリーの解決と所持スキルの操作を提供します。
// ツリー (トラック/ノード) は不変の参照データで、ユーザー操作が変更するのは
// 所持スキル (skills 行) だけです。
type SkillService interface {
	GetTree(ctx context.Context, userID uuid.UUID) ([]*model.SkillTrackView, error)
	ActivateNode(ctx context.Context, userID, nodeID uuid.UUID) (*model.Skill, error)
	CreateSkill(ctx context.Context, userID uuid.UUID, req *model.CreateSkillRequest) (*model.Skill, error)
	UpgradeSkill(ctx context.Context, userID, skillID uuid.UUID, req *model.UpgradeSkillRequest) (*model.Skill, error)
	ListSkills(ctx context.Context, userID uuid.UUID) ([]*model.Skill, error)
}

type skillService struct {
	db          *gorm.DB
	treeRepo    repository.SkillTreeRepository
	skillRepo   repository.SkillRepository
	progression ProgressionService
	locker      *UserLocker
	cfg         *config.Config
}

func NewSkillService(db *gorm.DB, treeRepo repository.SkillTreeRepository, skillRepo repository.SkillRepository, progression ProgressionService, locker *UserLocker, cfg *config.Config) SkillService {
	return &skillService{
		db:          db,
		treeRepo:    treeRepo,
		skillRepo:   skillRepo,
		progression: progression,
		locker:      locker,
		cfg:         cfg,
	}
}

// GetTree は全トラックのノードをユーザー視点の状態付きで返します。
// 解放判定: 前提が無ければ available、全前提を「レベル閾値以上で所持」していれば available、
// それ以外は locked。所持済みノードは常に owned。
func (s *skillService) GetTree(ctx context.Context, userID uuid.UUID) ([]*model.SkillTrackView, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	tracks, err := s.treeRepo.FindTracks(ctx, s.db)
	if err != nil {
		logger.Error("Failed to load skill tracks", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "スキルツリーの取得に失敗しました。", "", err)
	}
	nodes, err := s.treeRepo.FindNodes(ctx, s.db)
	if err != nil {
		logger.Error("Failed to load skill nodes", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "スキルツリーの取得に失敗しました。", "", err)
	}
	skills, err := s.skillRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "所持スキルの取得に失敗しました。", "", err)
	}

	byNode := make(map[uuid.UUID]*model.Skill, len(skills))
	for _, sk := range skills {
		if sk.NodeID != nil {
			byNode[*sk.NodeID] = sk
		}
	}

	views := make(map[uuid.UUID]*model.SkillTrackView, len(tracks))
	ordered := make([]*model.SkillTrackView, 0, len(tracks))
	for _, t := range tracks {
		v := &model.SkillTrackView{SkillTrack: t, Nodes: []*model.SkillNodeView{}}
		views[t.TrackID] = v
		ordered = append(ordered, v)
	}

	for _, n := range nodes {
		nv := &model.SkillNodeView{SkillNode: n, State: model.NodeStateLocked}
		if owned, ok := byNode[n.NodeID]; ok {
			nv.State = model.NodeStateOwned
			nv.SkillID = &owned.SkillID
			nv.Level = owned.Level
		} else if s.isUnlocked(n, byNode) {
			nv.State = model.NodeStateAvailable
		}
		if tv, ok := views[n.TrackID]; ok {
			tv.Nodes = append(tv.Nodes, nv)
		}
	}
	return ordered, nil
}

// isUnlocked は全ての前提ノードを閾値レベル以上で所持しているかを返します
func (s *skillService) isUnlocked(node *model.SkillNode, byNode map[uuid.UUID]*model.Skill) bool {
	for _, prereqID := range node.PrerequisiteIDs {
		owned, ok := byNode[prereqID]
		if !ok || owned.Level < s.cfg.Game.SkillUnlockLevel {
			return false
		}
	}
	return true
}

func (s *skillService) ActivateNode(ctx context.Context, userID, nodeID uuid.UUID) (*model.Skill, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "node_id", nodeID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	var skill *model.Skill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		node, err := s.treeRepo.FindNodeByID(ctx, tx, nodeID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("NODE_NOT_FOUND", "指定されたスキルノードが見つかりません。", "node_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "ノードの取得に失敗しました。", "", err)
		}

		if _, err := s.skillRepo.FindByNode(ctx, tx, userID, nodeID); err == nil {
			return model.NewAppError("NODE_ALREADY_OWNED", "このスキルノードは既に取得済みです。", "", model.ErrConflict)
		} else if !errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "所持スキルの確認に失敗しました。", "", err)
		}

		skills, err := s.skillRepo.FindByUser(ctx, tx, userID)
		if err != nil {
			return model.NewAppError("INTERNAL_SERVER_ERROR", "所持スキルの取得に失敗しました。", "", err)
		}
		byNode := make(map[uuid.UUID]*model.Skill, len(skills))
		for _, sk := range skills {
			if sk.NodeID != nil {
				byNode[*sk.NodeID] = sk
			}
		}
		if !s.isUnlocked(node, byNode) {
			return model.NewAppError("NODE_LOCKED", "前提スキルの条件を満たしていません。", "", model.ErrPolicy)
		}

		var track *model.SkillTrack
		if node.TrackID != uuid.Nil {
			tracks, terr := s.treeRepo.FindTracks(ctx, tx)
			if terr == nil {
				for _, t := range tracks {
					if t.TrackID == node.TrackID {
						track = t
						break
					}
				}
			}
		}
		category := ""
		if track != nil {
			category = track.Code
		}

		skill = &model.Skill{
			SkillID:  uuid.New(),
			UserID:   userID,
			NodeID:   &node.NodeID,
			Category: category,
			Name:     node.Title,
			Level:    0,
			Status:   model.SkillStatusLearning,
		}
		if cerr := s.skillRepo.Create(ctx, tx, skill); cerr != nil {
			logger.Error("Failed to create skill from node", "error", cerr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "スキルの作成に失敗しました。", "", cerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Skill node activated", "skill_id", skill.SkillID, "name", skill.Name)
	return skill, nil
}

func (s *skillService) CreateSkill(ctx context.Context, userID uuid.UUID, req *model.CreateSkillRequest) (*model.Skill, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	skill := &model.Skill{
		SkillID:  uuid.New(),
		UserID:   userID,
		Category: req.Category,
		Name:     req.Name,
		Level:    req.Level,
		Status:   model.SkillStatusForLevel(req.Level),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cerr := s.skillRepo.Create(ctx, tx, skill); cerr != nil {
			logger.Error("Failed to create skill", "error", cerr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "スキルの作成に失敗しました。", "", cerr)
		}
		// devスコアの平均スキルレベルが変わるので再計算する
		if _, rerr := s.progression.RecomputeInTx(ctx, tx, userID); rerr != nil {
			return rerr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Skill created", "skill_id", skill.SkillID, "name", skill.Name, "level", skill.Level)
	return skill, nil
}

// UpgradeSkill はスキルレベルを引き上げ、上げ幅に応じたXPを付与します。
// ダウングレードは拒否。習熟帯 (80以上) への初回到達でボーナスXPを加算します。
// ソースIDが決定的なので、同じ引き上げを再送してもXPは二重に付きません。
func (s *skillService) UpgradeSkill(ctx context.Context, userID, skillID uuid.UUID, req *model.UpgradeSkillRequest) (*model.Skill, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "skill_id", skillID)

	unlock := s.locker.Lock(userID)
	defer unlock()

	var skill *model.Skill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		skill, err = s.skillRepo.FindByID(ctx, tx, userID, skillID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("SKILL_NOT_FOUND", "指定されたスキルが見つかりません。", "skill_id", model.ErrNotFound)
			}
			return model.NewAppError("INTERNAL_SERVER_ERROR", "スキルの取得に失敗しました。", "", err)
		}

		newLevel := req.NewLevel
		if newLevel < skill.Level {
			return model.NewAppError("INVALID_LEVEL", "スキルレベルは下げられません。", "new_level", model.ErrPolicy)
		}

		// ノード由来のスキルはノードの上限でクランプする
		maxLevel := 100
		if skill.NodeID != nil {
			if node, nerr := s.treeRepo.FindNodeByID(ctx, tx, *skill.NodeID); nerr == nil && node.MaxLevel > 0 {
				maxLevel = node.MaxLevel
			}
		}
		if newLevel > maxLevel {
			newLevel = maxLevel
		}
		if newLevel == skill.Level {
			return nil
		}

		oldLevel := skill.Level
		oldStatus := skill.Status
		skill.Level = newLevel
		skill.Status = model.SkillStatusForLevel(newLevel)
		if serr := s.skillRepo.Save(ctx, tx, skill); serr != nil {
			logger.Error("Failed to save skill", "error", serr)
			return model.NewAppError("INTERNAL_SERVER_ERROR", "スキルの保存に失敗しました。", "", serr)
		}

		delta := newLevel - oldLevel
		_, _, aerr := s.progression.AwardXPEventInTx(ctx, tx, userID, AwardParams{
			Kind:       model.XPKindSkillLevelUp,
			Amount:     delta * XPPerSkillLevel,
			SourceType: "skill_level",
			SourceID:   fmt.Sprintf("%s:%d", skill.SkillID, newLevel),
			Metadata: map[string]any{
				"skill_name": skill.Name,
				"old_level":  oldLevel,
				"new_level":  newLevel,
			},
		})
		if aerr != nil {
			return aerr
		}

		if oldStatus != model.SkillStatusMastered && skill.Status == model.SkillStatusMastered {
			_, _, merr := s.progression.AwardXPEventInTx(ctx, tx, userID, AwardParams{
				Kind:       model.XPKindSkillMastered,
				Amount:     XPSkillMastered,
				SourceType: "skill_mastered",
				SourceID:   skill.SkillID.String(),
				Metadata:   map[string]any{"skill_name": skill.Name},
			})
			if merr != nil {
				return merr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Skill upgraded", "name", skill.Name, "level", skill.Level, "status", skill.Status)
	return skill, nil
}

func (s *skillService) ListSkills(ctx context.Context, userID uuid.UUID) ([]*model.Skill, error) {
	skills, err := s.skillRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "スキル一覧の取得に失敗しました。", "", err)
	}
	return skills, nil
}
