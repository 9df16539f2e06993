package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"deskserver/internal/clock"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CookieName はセッションキーを運ぶクッキー名です。
	CookieName = "sessionid"
	// NoRenewHeader に "1" が付いたリクエストは有効期限を延長しません（ポーリング用）。
	NoRenewHeader = "X-Session-No-Renew"
)

// State はリクエストに付いていたセッションの状態です。
type State int

const (
	StateMissing State = iota // クッキーが無い
	StateUnknown              // クッキーはあるがセッションが無い
	StateExpired              // セッションはあるが期限切れ
	StateActive
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateUnknown:
		return "unknown"
	case StateExpired:
		return "expired"
	case StateActive:
		return "active"
	}
	return "invalid"
}

// Manager はクッキーと Store を結びつけ、ログイン・判定・延長・破棄を行います。
type Manager struct {
	store  Store
	clock  clock.Clock
	maxAge time.Duration
	secure bool
	logger *zap.Logger
}

func NewManager(store Store, clk clock.Clock, maxAge time.Duration, secure bool, logger *zap.Logger) *Manager {
	return &Manager{store: store, clock: clk, maxAge: maxAge, secure: secure, logger: logger}
}

// Login は新しいセッションを作り、クッキーをセットします。既存のセッションは破棄します。
func (m *Manager) Login(c *gin.Context, userID uint) (*Data, error) {
	if key, err := c.Cookie(CookieName); err == nil && key != "" {
		if err := m.store.Delete(c.Request.Context(), key); err != nil {
			m.logger.Warn("古いセッションの削除に失敗しました", zap.Error(err))
		}
	}

	data := &Data{
		Key:      strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:   userID,
		ExpireAt: m.clock.Now().Add(m.maxAge),
	}
	if err := m.store.Save(c.Request.Context(), data); err != nil {
		return nil, err
	}
	m.setCookie(c, data.Key, int(m.maxAge/time.Second))
	return data, nil
}

// Resolve はリクエストのクッキーからセッションを探して状態を返します。
// エラーはストレージ障害のときだけです。
func (m *Manager) Resolve(c *gin.Context) (*Data, State, error) {
	key, err := c.Cookie(CookieName)
	if err != nil || key == "" {
		return nil, StateMissing, nil
	}
	data, err := m.store.Get(c.Request.Context(), key)
	if errors.Is(err, ErrNotFound) {
		return nil, StateUnknown, nil
	}
	if err != nil {
		return nil, StateMissing, err
	}
	if data.Expired(m.clock.Now()) {
		return data, StateExpired, nil
	}
	return data, StateActive, nil
}

// Touch は有効期限を maxAge だけ先に延ばします。NoRenewHeader が "1" なら何もしません。
func (m *Manager) Touch(c *gin.Context, data *Data) error {
	if c.GetHeader(NoRenewHeader) == "1" {
		return nil
	}
	data.ExpireAt = m.clock.Now().Add(m.maxAge)
	if err := m.store.Save(c.Request.Context(), data); err != nil {
		return err
	}
	m.setCookie(c, data.Key, int(m.maxAge/time.Second))
	return nil
}

// Flush はセッションを削除し、クッキーを消します。
func (m *Manager) Flush(c *gin.Context) {
	if key, err := c.Cookie(CookieName); err == nil && key != "" {
		if err := m.store.Delete(c.Request.Context(), key); err != nil {
			m.logger.Warn("セッションの削除に失敗しました", zap.Error(err))
		}
	}
	m.setCookie(c, "", -1)
}

// Sweep は ExpiredRetention より前に切れたセッションを削除します。
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.clock.Now().Add(-ExpiredRetention))
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", m.secure, true)
}
