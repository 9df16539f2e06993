package middlewares

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Source はリクエストの本人確認がどこから来たかを表します。
type Source string

const (
	SourcePlatform Source = "platform" // sessionid クッキー
	SourceToken    Source = "token"    // Authorization: Bearer
)

// Principal は認証済みリクエストの本人です。コンテキストに無ければ匿名です。
type Principal struct {
	UserID   uint
	Username string
	Source   Source
	Token    string // Source が token のときだけ
	DeviceID string // Source が token のときだけ
}

type principalKey struct{}

// WithPrincipal は p を持つコンテキストを返します。
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// CurrentPrincipal はコンテキストの本人を返します。匿名なら (nil, false)。
func CurrentPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}
