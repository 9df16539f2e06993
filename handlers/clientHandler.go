package handlers

import (
	"errors"
	"net/http"

	"deskserver/auth"
	"deskserver/internal/audit"
	"deskserver/internal/device"
	"deskserver/internal/session"
	"deskserver/middlewares"
	"deskserver/models"
	"deskserver/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Heartbeat はクライアントの生存通知を受け付けます（フォーム: uuid, id, modified_at, ver）。
func Heartbeat(reg *device.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HeartbeatRequest
		if err := c.ShouldBind(&req); err != nil {
			utils.HeartbeatsTotal.WithLabelValues("malformed").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		_, err := reg.RecordHeartbeat(c.Request.Context(), device.Heartbeat{
			UUID:       req.UUID,
			ClientID:   req.ClientID,
			ModifiedAt: req.ModifiedAt,
			Ver:        req.Ver,
		})
		if errors.Is(err, device.ErrMalformedInput) {
			utils.HeartbeatsTotal.WithLabelValues("malformed").Inc()
			logger.Warn("不正なハートビート", zap.Error(err), zap.String("uuid", req.UUID))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			utils.HeartbeatsTotal.WithLabelValues("error").Inc()
			internalError(c, logger, "ハートビートの保存に失敗しました", err)
			return
		}
		utils.HeartbeatsTotal.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// SystemInfo はクライアントのシステム情報（JSON）を保存します。
func SystemInfo(reg *device.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var info models.SystemInfo
		if err := c.ShouldBindJSON(&info); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_, err := reg.RecordSystemInfo(c.Request.Context(), info)
		if errors.Is(err, device.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			internalError(c, logger, "システム情報の保存に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ClientLogin はクライアントからのログインです。セッションを開始し、デバイス用のトークンを発行します。
// 認証に失敗したときも 200 で {"error": ...} を返します（クライアントはこの形を期待している）。
// 成功したログインは login_log に残しますが、その失敗でログイン自体は失敗させません。
func ClientLogin(users *auth.Users, tokens *auth.TokenStore, sessions *session.Manager, rec *audit.Recorder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{"error": auth.ErrInvalidCredentials.Error()})
			return
		}

		ctx := c.Request.Context()
		user, err := users.Authenticate(ctx, req.Username, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.Info("ログイン失敗", zap.String("username", req.Username), zap.String("ip", c.GetString(utils.ClientIPKey)))
			c.JSON(http.StatusOK, gin.H{"error": err.Error()})
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
		token, err := tokens.Issue(ctx, user.Username, req.UUID)
		if err != nil {
			internalError(c, logger, "トークンの発行に失敗しました", err)
			return
		}
		utils.TokensIssuedTotal.Inc()
		middlewares.SoftFail(logger, "login log", func() error {
			return rec.LogLogin(ctx, models.LoginLog{
				Username:   user.Username,
				ClientID:   req.ClientID,
				UUID:       req.UUID,
				AutoLogin:  req.AutoLogin,
				LoginType:  req.LoginType,
				OS:         req.DeviceInfo.OS,
				DeviceType: req.DeviceInfo.Type,
				DeviceName: req.DeviceInfo.Name,
				IP:         c.GetString(utils.ClientIPKey),
			})
		})

		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"type":         "access_token",
			"user": gin.H{
				"name": user.Username,
			},
		})
	}
}

// ClientLogout はデバイスのトークンをすべて失効させ、セッションを破棄します。
func ClientLogout(tokens *auth.TokenStore, sessions *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LogoutRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// uuid 無しのログアウトで、uuid 無しで発行されたトークンをまとめて消さないようにする
		if req.UUID != "" {
			n, err := tokens.RevokeByDevice(c.Request.Context(), req.UUID)
			if err != nil {
				internalError(c, logger, "トークンの失効に失敗しました", err)
				return
			}
			logger.Info("ログアウト", zap.String("uuid", req.UUID), zap.Int64("tokens_revoked", n))
		}
		sessions.Flush(c)
		c.JSON(http.StatusOK, gin.H{"code": 1})
	}
}
