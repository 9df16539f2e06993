package handlers

import (
	"net/http"
	"strings"
	"time"

	"deskserver/internal/device"
	"deskserver/internal/liveness"
	"deskserver/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type statusEntry struct {
	IsOnline bool `json:"is_online"`
}

func statusData(status map[string]bool) map[string]statusEntry {
	data := make(map[string]statusEntry, len(status))
	for id, online := range status {
		data[id] = statusEntry{IsOnline: online}
	}
	return data
}

// currentUserID はログイン中のユーザーの ID です。コンソールのルートでは RequireLogin の後なので必ずいます。
func currentUserID(c *gin.Context) uint {
	if p, ok := middlewares.CurrentPrincipal(c.Request.Context()); ok {
		return p.UserID
	}
	return 0
}

// deviceDetail はデバイス詳細のレスポンスです。
type deviceDetail struct {
	PeerID   string   `json:"peer_id"`
	Username string   `json:"username"`
	Hostname string   `json:"hostname"`
	Alias    string   `json:"alias"`
	Platform string   `json:"platform"`
	Tags     []string `json:"tags"`
	IsOnline bool     `json:"is_online"`
}

// Devices はデバイス一覧を返します（page, page_size, q, os, status）。
// 各行の alias と tags はログイン中のユーザーから見た値です。
func Devices(reg *device.Registry, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := reg.List(c.Request.Context(), device.Filter{
			Page:     queryInt(c, "page", 1),
			PageSize: queryInt(c, "page_size", 20),
			Query:    c.Query("q"),
			OS:       c.Query("os"),
			Status:   c.Query("status"),
			UserID:   currentUserID(c),
		}, window)
		if err != nil {
			internalError(c, logger, "デバイス一覧の取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": page})
	}
}

// DeviceDetail はピアIDで1台の詳細を返します。
func DeviceDetail(reg *device.Registry, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		peerID := strings.TrimSpace(c.Query("peer_id"))
		if peerID == "" {
			fail(c, http.StatusBadRequest, "peer_id is required")
			return
		}
		d, err := reg.Get(c.Request.Context(), peerID, currentUserID(c), window)
		if err != nil {
			internalError(c, logger, "デバイスの取得に失敗しました", err)
			return
		}
		if d == nil {
			fail(c, http.StatusNotFound, "device not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": deviceDetail{
			PeerID:   d.ClientID,
			Username: d.Username,
			Hostname: d.Hostname,
			Alias:    d.Alias,
			Platform: d.OS,
			Tags:     d.Tags,
			IsOnline: d.IsOnline,
		}})
	}
}

// DeviceStatuses は ids=a,b,c のオンライン状態をまとめて返します。読み取りのみ。
// ポーリング側は X-Session-No-Renew: 1 を付けてセッションを延長しないようにします。
func DeviceStatuses(oracle *liveness.Oracle, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := splitIDs(c.Query("ids"))
		if len(ids) == 0 {
			c.JSON(http.StatusOK, gin.H{"ok": true, "data": gin.H{}})
			return
		}
		status, err := oracle.BulkStatus(c.Request.Context(), ids, window)
		if err != nil {
			internalError(c, logger, "オンライン状態の取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": statusData(status)})
	}
}
