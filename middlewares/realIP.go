package middlewares

import (
	"net"
	"strings"

	"deskserver/utils"

	"github.com/gin-gonic/gin"
)

// RealIP はクライアントIPを X-Forwarded-For の先頭、X-Real-IP、接続元の順に求めてコンテキストに置きます。
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(utils.ClientIPKey, clientIP(c))
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
