// Package clock は時刻取得を抽象化し、テストで時刻を固定できるようにします。
package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を返します。本番では Real()、テストでは Fake() を渡します。
type Clock interface {
	Now() time.Time
}

// Real は time パッケージを使う Clock を返します。時刻は常に UTC です。
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// FakeClock は Advance/Set を呼ぶまで進まない Clock です。並行利用に安全です。
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake は initial に固定された FakeClock を返します。
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance は時刻を d だけ進めます。
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set は時刻を t に合わせます。
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t.UTC()
	c.mu.Unlock()
}
