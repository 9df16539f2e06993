package middlewares

import (
	"net/http"

	"deskserver/internal/session"
	"deskserver/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionDataKey は StrictSession が確認したセッションを後続に渡すキーです。
const sessionDataKey = "session_data"

// StrictSession はコンソール用のルートに付けるポリシーです。
//
//   - sessionid クッキーが無い → 403 "missing sessionid"
//   - セッションが存在しない → セッション破棄 + 403 "unknown session"
//   - セッションが期限切れ → セッション破棄 + 403 "session expired"
//   - それ以外は通す
//
// クッキーが無くても Authorization: Bearer が付いていればトークン認証に任せます。
func StrictSession(sessions *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, state, err := sessions.Resolve(c)
		if err != nil {
			logger.Error("セッションの取得に失敗しました", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		switch state {
		case session.StateActive:
			c.Set(sessionDataKey, data)
			c.Next()
			return
		case session.StateMissing:
			if _, ok := bearerToken(c); ok {
				c.Next()
				return
			}
			reject(c, state, "missing sessionid")
		case session.StateUnknown:
			sessions.Flush(c)
			reject(c, state, "unknown session")
		case session.StateExpired:
			sessions.Flush(c)
			reject(c, state, "session expired")
		}
		logger.Debug("セッション拒否", zap.Stringer("state", state), zap.String("path", c.Request.URL.Path))
	}
}

func reject(c *gin.Context, state session.State, message string) {
	utils.SessionRejectionsTotal.WithLabelValues(state.String()).Inc()
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
}
