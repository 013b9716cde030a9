package service

import "go_5_hero_quest/internal/model"

// レベル計算の純粋関数群。レベル・ランク・ポイント付与は全てここから導出され、
// 表示用の /xp-rules も同じ関数・テーブルを参照する (計算と表示の乖離防止)。

// XPRequiredToReachLevel は指定レベルに「到達するために必要な」累積XPを返します。
//
//	Level 1 -> 0 XP
//	Level 2 -> 100 XP
//	Level 3 -> 100 + 200 = 300 XP
//	...
func XPRequiredToReachLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return ((level - 1) * level / 2) * 100
}

// LevelForXP は累積XPから到達レベルを返します。XPは減らないので単調非減少です。
func LevelForXP(totalXP int) int {
	level := 1
	for totalXP >= XPRequiredToReachLevel(level+1) {
		level++
	}
	return level
}

// XPToNextLevel は現在レベルの1段分のコストを返します (level n -> n+1 は 100*n)
func XPToNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return level * 100
}

// StatPointsGrantedForLevel はレベル到達までに付与される総ポイントです。
// 差分ではなく再計算なので、途中レベルを経由しなかった場合でも
// 現在レベルまでの分がちょうど1回だけ付与されます。
func StatPointsGrantedForLevel(level, pointsPerLevel int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * pointsPerLevel
}

// RankThreshold はランク表の1行です
type RankThreshold struct {
	Code        model.Rank
	Title       string
	MinDevScore int
}

// RankThresholds は devスコアの降順ステップ関数です (最初に満たした段位が勝つ)
var RankThresholds = []RankThreshold{
	{model.RankS, "Senior", 10000},
	{model.RankA, "Middle+", 6000},
	{model.RankB, "Middle", 3000},
	{model.RankC, "Junior+", 1500},
	{model.RankD, "Junior", 500},
	{model.RankE, "Novice", 0},
}

// RankForDevScore は devスコアから段位を返します
func RankForDevScore(devScore int) model.Rank {
	for _, t := range RankThresholds {
		if devScore >= t.MinDevScore {
			return t.Code
		}
	}
	return model.RankE
}

// 活動種別ごとの固定XP量
const (
	XPPerSkillLevel = 2   // スキルレベル1段あたり
	XPSkillMastered = 100 // 習熟 (レベル80到達) ボーナス
	XPLearningLog   = 25  // 学習ログ1件あたり
)

// dev スコアの重み。活動の幅 (スキル・タスク・習熟) を加点する。
const (
	devScoreSkillLevelWeight    = 5
	devScoreTaskCompleteWeight  = 20
	devScoreSkillMasteredWeight = 100
)

// DevScore は進行度の二次集計です。累積XPに活動の幅の加点を足したもの。
func DevScore(totalXP, avgSkillLevel int, completedTasks, masteredSkills int64) int {
	return totalXP +
		avgSkillLevel*devScoreSkillLevelWeight +
		int(completedTasks)*devScoreTaskCompleteWeight +
		int(masteredSkills)*devScoreSkillMasteredWeight
}
