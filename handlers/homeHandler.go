package handlers

import (
	"net/http"

	"deskserver/auth"
	"deskserver/internal/device"
	"deskserver/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Home はコンソールのホーム画面の情報を返します。
func Home(users *auth.Users, reg *device.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username := ""
		if p, ok := middlewares.CurrentPrincipal(ctx); ok {
			username = p.Username
		}

		userCount, err := users.CountActive(ctx)
		if err != nil {
			internalError(c, logger, "ユーザー数の取得に失敗しました", err)
			return
		}
		deviceCount, err := reg.Count(ctx)
		if err != nil {
			internalError(c, logger, "デバイス数の取得に失敗しました", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok": true,
			"data": gin.H{
				"username":     username,
				"user_count":   userCount,
				"device_count": deviceCount,
			},
		})
	}
}

// Users は有効なユーザーの一覧を返します（page, page_size, q）。
func Users(users *auth.Users, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := users.ListActive(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1), queryInt(c, "page_size", 20))
		if err != nil {
			internalError(c, logger, "ユーザー一覧の取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": page})
	}
}
