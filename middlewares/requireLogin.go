package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireLogin は匿名のリクエストを 401 で止めます。
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}
