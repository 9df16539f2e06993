package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail はコンソール API の失敗レスポンス {"ok": false, "err_msg": ...} を返します。
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"ok": false, "err_msg": msg})
}

// internalError はストレージ障害などをログに残して 500 を返します。
func internalError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	fail(c, http.StatusInternalServerError, "internal error")
}

// queryInt は整数のクエリパラメータを読みます。無いか不正なら def。
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// splitIDs は "a, b,,c" を ["a" "b" "c"] にします。
func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
