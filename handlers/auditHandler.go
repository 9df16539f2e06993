package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"deskserver/internal/audit"
	"deskserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rawText は JSON の値を文字列にします。文字列ならそのまま、数値などは表記のまま、null は空。
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// AuditConn は接続の監査イベントを記録します。成功すると本文なしの 200 を返します。
func AuditConn(rec *audit.Recorder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AuditConnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ev := audit.ConnEvent{
			ConnID:         req.ConnID,
			Action:         req.Action,
			ControlledUUID: req.UUID,
			SourceIP:       req.IP,
			SessionID:      rawText(req.SessionID),
			Type:           req.Type,
		}
		if len(req.Peer) > 0 {
			ev.ControllerPeerID = fmt.Sprint(req.Peer[0])
			ev.Username = strings.ToLower(fmt.Sprint(req.Peer[len(req.Peer)-1]))
		}

		_, err := rec.LogConn(c.Request.Context(), ev)
		if errors.Is(err, audit.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			internalError(c, logger, "接続監査の保存に失敗しました", err)
			return
		}
		c.Status(http.StatusOK)
	}
}

// AuditFile はファイル転送の監査イベントを記録します。成功すると本文なしの 200 を返します。
func AuditFile(rec *audit.Recorder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AuditFileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var info models.AuditFileInfo
		if strings.TrimSpace(req.Info) != "" {
			if err := json.Unmarshal([]byte(req.Info), &info); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "info: " + err.Error()})
				return
			}
		}

		_, err := rec.LogFile(c.Request.Context(), audit.FileEvent{
			SourceID:      req.PeerID,
			TargetID:      req.ID,
			TargetUUID:    req.UUID,
			TargetIP:      info.IP,
			OperationType: req.Type,
			IsFile:        req.IsFile,
			RemotePath:    req.Path,
			FileInfo:      string(info.Files),
			FileNum:       info.Num,
			Username:      info.Name,
		})
		if err != nil {
			internalError(c, logger, "ファイル監査の保存に失敗しました", err)
			return
		}
		c.Status(http.StatusOK)
	}
}
