// Package session はコンソール用のプラットフォームセッションを扱います。
// セッション本体は Store（Redis またはデータベース）に置き、ブラウザには sessionid クッキーだけを渡します。
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound はセッションが存在しないことを表します。
var ErrNotFound = errors.New("session not found")

// ExpiredRetention は期限切れのセッションを「期限切れ」として判別できるように残しておく期間です。
// これを過ぎると掃除され、以降は「存在しない」扱いになります。
const ExpiredRetention = 24 * time.Hour

// Data は1つのセッションです。
type Data struct {
	Key      string    `json:"-"`
	UserID   uint      `json:"user_id"`
	ExpireAt time.Time `json:"expire_at"`
}

// Expired は now の時点で期限が切れていれば true。
func (d *Data) Expired(now time.Time) bool {
	return !d.ExpireAt.After(now)
}

// Store はセッションの保存先です。期限切れのセッションも Get で返します。
type Store interface {
	Get(ctx context.Context, key string) (*Data, error)
	Save(ctx context.Context, data *Data) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
