package middlewares

import (
	"context"

	"deskserver/internal/session"
	"deskserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserFinder は有効なユーザーを探します。auth.Users が満たします。
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindActive(ctx context.Context, username string) (*models.User, error)
}

// PlatformSession は有効なセッションがあればその本人をコンテキストに置き、期限を延ばします。
// セッションが無い・切れている場合は何もせず匿名のまま通します。
func PlatformSession(sessions *session.Manager, users UserFinder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, ok := activeSession(c, sessions, logger)
		if !ok {
			c.Next()
			return
		}

		user, err := users.FindByID(c.Request.Context(), data.UserID)
		if err != nil {
			logger.Error("セッションのユーザー取得に失敗しました", zap.Error(err))
			c.Next()
			return
		}
		if user == nil {
			c.Next()
			return
		}

		setPrincipal(c, &Principal{UserID: user.ID, Username: user.Username, Source: SourcePlatform})
		SoftFail(logger, "session touch", func() error { return sessions.Touch(c, data) })
		c.Next()
	}
}

func activeSession(c *gin.Context, sessions *session.Manager, logger *zap.Logger) (*session.Data, bool) {
	if v, ok := c.Get(sessionDataKey); ok {
		data, ok := v.(*session.Data)
		return data, ok
	}
	data, state, err := sessions.Resolve(c)
	if err != nil {
		logger.Error("セッションの取得に失敗しました", zap.Error(err))
		return nil, false
	}
	return data, state == session.StateActive
}
