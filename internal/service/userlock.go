package service

import (
	"sync"

	"github.com/google/uuid"
)

// UserLocker はユーザー集約ごとの直列化スコープです。
// 同一ユーザーに対するエンジン操作 (start/stop/attack/allocate など) は
// 1操作の間ロックを保持して直列に実行され、別ユーザーの操作とは並行に動きます。
// 「アクティブなフォーカスセッションは1つ」「アクティブなボスは1体」の
// 不変条件はこの直列化で守ります。
type UserLocker struct {
	mu sync.Map // uuid.UUID -> *sync.Mutex
}

func NewUserLocker() *UserLocker {
	return &UserLocker{}
}

// Lock は対象ユーザーのミューテックスを取得し、解放関数を返します。
// 解放関数は失敗パスを含む全ての経路で必ず呼び出してください (defer 推奨)。
func (l *UserLocker) Lock(userID uuid.UUID) func() {
	v, _ := l.mu.LoadOrStore(userID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
