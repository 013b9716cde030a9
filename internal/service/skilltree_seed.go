package service

import (
	"context"
	"fmt"

	"go_5_hero_quest/internal/model"
	"go_5_hero_quest/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// スキルツリーのシード定義。起動時にDBへアップサートされます。
// IDはコードから決定的に導出するので、再起動しても同じ行を更新します。

type seedTrack struct {
	Code  string
	Title string
	Nodes []seedNode
}

type seedNode struct {
	Code     string
	Title    string
	Desc     string
	MaxLevel int
	Prereqs  []string // 同一ツリー内のノードコード
}

var defaultSkillTree = []seedTrack{
	{
		Code:  "backend",
		Title: "バックエンド",
		Nodes: []seedNode{
			{Code: "http-basics", Title: "HTTPの基礎", Desc: "リクエスト/レスポンス、メソッド、ステータスコード", MaxLevel: 100},
			{Code: "rest-api", Title: "REST API設計", Desc: "リソース設計とエラーハンドリング", MaxLevel: 100, Prereqs: []string{"http-basics"}},
			{Code: "sql", Title: "SQLとデータモデリング", Desc: "正規化、インデックス、トランザクション", MaxLevel: 100},
			{Code: "orm", Title: "ORMとマイグレーション", Desc: "スキーマ管理とクエリ最適化", MaxLevel: 100, Prereqs: []string{"sql"}},
			{Code: "async-jobs", Title: "非同期処理とジョブキュー", Desc: "バックグラウンドワーカーと再試行", MaxLevel: 100, Prereqs: []string{"rest-api", "orm"}},
		},
	},
	{
		Code:  "frontend",
		Title: "フロントエンド",
		Nodes: []seedNode{
			{Code: "html-css", Title: "HTML/CSS", Desc: "セマンティクスとレイアウト", MaxLevel: 100},
			{Code: "javascript", Title: "JavaScript", Desc: "言語コアと非同期処理", MaxLevel: 100, Prereqs: []string{"html-css"}},
			{Code: "spa-framework", Title: "SPAフレームワーク", Desc: "コンポーネント設計と状態管理", MaxLevel: 100, Prereqs: []string{"javascript"}},
		},
	},
	{
		Code:  "devops",
		Title: "DevOps",
		Nodes: []seedNode{
			{Code: "linux", Title: "Linuxの基礎", Desc: "シェル、プロセス、パーミッション", MaxLevel: 100},
			{Code: "docker", Title: "コンテナ", Desc: "イメージ作成とコンテナ運用", MaxLevel: 100, Prereqs: []string{"linux"}},
			{Code: "ci-cd", Title: "CI/CD", Desc: "ビルドパイプラインと自動デプロイ", MaxLevel: 100, Prereqs: []string{"docker"}},
			{Code: "observability", Title: "オブザーバビリティ", Desc: "ログ、メトリクス、トレース", MaxLevel: 100, Prereqs: []string{"docker"}},
		},
	},
	{
		Code:  "cs",
		Title: "CS基礎",
		Nodes: []seedNode{
			{Code: "data-structures", Title: "データ構造", Desc: "配列、木、ハッシュテーブル", MaxLevel: 100},
			{Code: "algorithms", Title: "アルゴリズム", Desc: "探索、ソート、計算量", MaxLevel: 100, Prereqs: []string{"data-structures"}},
			{Code: "networking", Title: "ネットワーク", Desc: "TCP/IP、DNS、TLS", MaxLevel: 100},
		},
	},
}

// seedTrackID / seedNodeID はコードから決定的なUUIDを導出します
func seedTrackID(code string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("hero-quest/track/"+code))
}

func seedNodeID(code string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("hero-quest/node/"+code))
}

// SeedSkillTree はシード定義を検証してDBへアップサートします。起動時に1回呼びます。
func SeedSkillTree(ctx context.Context, db *gorm.DB, treeRepo repository.SkillTreeRepository) error {
	if err := validateSeed(defaultSkillTree); err != nil {
		return fmt.Errorf("skill tree seed is invalid: %w", err)
	}

	for ti, t := range defaultSkillTree {
		track := &model.SkillTrack{
			TrackID: seedTrackID(t.Code),
			Code:    t.Code,
			Title:   t.Title,
			Order:   ti,
		}
		if err := treeRepo.UpsertTrack(ctx, db, track); err != nil {
			return err
		}
		for ni, n := range t.Nodes {
			prereqs := make([]uuid.UUID, 0, len(n.Prereqs))
			for _, p := range n.Prereqs {
				prereqs = append(prereqs, seedNodeID(p))
			}
			node := &model.SkillNode{
				NodeID:          seedNodeID(n.Code),
				TrackID:         track.TrackID,
				Code:            n.Code,
				Title:           n.Title,
				Description:     n.Desc,
				MaxLevel:        n.MaxLevel,
				Order:           ni,
				PrerequisiteIDs: prereqs,
			}
			if err := treeRepo.UpsertNode(ctx, db, node); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateSeed は前提参照の解決と非循環性を検証します。
// ノードコードは全ツリーを通して一意で、前提はDAGを構成しなければなりません。
func validateSeed(tracks []seedTrack) error {
	prereqsByCode := make(map[string][]string)
	for _, t := range tracks {
		for _, n := range t.Nodes {
			if _, dup := prereqsByCode[n.Code]; dup {
				return fmt.Errorf("duplicate node code %q", n.Code)
			}
			prereqsByCode[n.Code] = n.Prereqs
		}
	}
	for code, prereqs := range prereqsByCode {
		for _, p := range prereqs {
			if _, ok := prereqsByCode[p]; !ok {
				return fmt.Errorf("node %q references unknown prerequisite %q", code, p)
			}
		}
	}

	// DFSでサイクル検出
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(prereqsByCode))
	var visit func(code string) error
	visit = func(code string) error {
		switch colors[code] {
		case gray:
			return fmt.Errorf("prerequisite cycle involving node %q", code)
		case black:
			return nil
		}
		colors[code] = gray
		for _, p := range prereqsByCode[code] {
			if err := visit(p); err != nil {
				return err
			}
		}
		colors[code] = black
		return nil
	}
	for code := range prereqsByCode {
		if err := visit(code); err != nil {
			return err
		}
	}
	return nil
}
