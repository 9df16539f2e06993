package handlers

import (
	"errors"
	"net/http"

	"deskserver/auth"
	"deskserver/internal/session"
	"deskserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebLogin はコンソールのログインです。プラットフォームセッションだけを作り、トークンは発行しません。
func WebLogin(users *auth.Users, sessions *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			fail(c, http.StatusBadRequest, "username and password are required")
			return
		}

		user, err := users.Authenticate(c.Request.Context(), req.Username, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			internalError(c, logger, "ログイン処理に失敗しました", err)
			return
		}
		if _, err := sessions.Login(c, user.ID); err != nil {
			internalError(c, logger, "セッションの作成に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "username": user.Username})
	}
}

// WebLogout はセッションを破棄します。
func WebLogout(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions.Flush(c)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
