//go:generate mockery --name SkillTreeRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_hero_quest/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SkillTreeRepository はスキルツリーの参照データ (トラック/ノード) へのアクセスです。
// 参照データはシードからのみ書き込まれ、エンジンの操作では決して変更されません。
type SkillTreeRepository interface {
	UpsertTrack(ctx context.Context, db *gorm.DB, track *model.SkillTrack) error
	UpsertNode(ctx context.Context, db *gorm.DB, node *model.SkillNode) error
	FindTracks(ctx context.Context, db *gorm.DB) ([]*model.SkillTrack, error)
	FindNodes(ctx context.Context, db *gorm.DB) ([]*model.SkillNode, error)
	FindNodeByID(ctx context.Context, db *gorm.DB, nodeID uuid.UUID) (*model.SkillNode, error)
}

type gormSkillTreeRepository struct{}

func NewGormSkillTreeRepository() SkillTreeRepository {
	return &gormSkillTreeRepository{}
}

func (r *gormSkillTreeRepository) UpsertTrack(ctx context.Context, db *gorm.DB, track *model.SkillTrack) error {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "track_id"}},
			UpdateAll: true,
		}).
		Create(track).Error
	if err != nil {
		return fmt.Errorf("gormSkillTreeRepository.UpsertTrack: %w", err)
	}
	return nil
}

func (r *gormSkillTreeRepository) UpsertNode(ctx context.Context, db *gorm.DB, node *model.SkillNode) error {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "node_id"}},
			UpdateAll: true,
		}).
		Create(node).Error
	if err != nil {
		return fmt.Errorf("gormSkillTreeRepository.UpsertNode: %w", err)
	}
	return nil
}

func (r *gormSkillTreeRepository) FindTracks(ctx context.Context, db *gorm.DB) ([]*model.SkillTrack, error) {
	var tracks []*model.SkillTrack
	err := db.WithContext(ctx).Order("sort_order ASC, title ASC").Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("gormSkillTreeRepository.FindTracks: %w", err)
	}
	return tracks, nil
}

func (r *gormSkillTreeRepository) FindNodes(ctx context.Context, db *gorm.DB) ([]*model.SkillNode, error) {
	var nodes []*model.SkillNode
	err := db.WithContext(ctx).Order("sort_order ASC, title ASC").Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("gormSkillTreeRepository.FindNodes: %w", err)
	}
	return nodes, nil
}

func (r *gormSkillTreeRepository) FindNodeByID(ctx context.Context, db *gorm.DB, nodeID uuid.UUID) (*model.SkillNode, error) {
	var node model.SkillNode
	result := db.WithContext(ctx).Where("node_id = ?", nodeID).First(&node)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormSkillTreeRepository.FindNodeByID: %w", result.Error)
	}
	return &node, nil
}
