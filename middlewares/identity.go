package middlewares

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deskserver/models"
	"deskserver/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// TokenValidator はベアラートークンの検証に必要な操作です。auth.TokenStore が満たします。
type TokenValidator interface {
	Validate(ctx context.Context, value string, ttl time.Duration) (bool, error)
	Lookup(ctx context.Context, value string) (*models.Token, error)
	Renew(ctx context.Context, value string) (bool, error)
}

// IdentityMiddleware はリクエストの本人を決めます。
//
// プラットフォームセッションの本人が既にいればトークンは見ません。
// そうでなければ Authorization: Bearer <token> を検証し、有効なら本人を置いてから期限を延長します。
// 延長の失敗とトークン経路のエラーはログに残すだけで、リクエストは匿名のまま続行します。
//
// 検証と延長の間に期限が切れる競合はそのまま許容します（延長はその時点の検証結果に依存しない）。
func IdentityMiddleware(tokens TokenValidator, users UserFinder, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := CurrentPrincipal(c.Request.Context()); ok && p.Source == SourcePlatform {
			c.Next()
			return
		}
		value, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		principal, err := authenticateToken(c.Request.Context(), tokens, users, value, ttl)
		switch {
		case err != nil:
			utils.TokenAuthTotal.WithLabelValues("error").Inc()
			logger.Debug("トークン認証でエラー", zap.Error(err))
		case principal == nil:
			utils.TokenAuthTotal.WithLabelValues("rejected").Inc()
		default:
			utils.TokenAuthTotal.WithLabelValues("ok").Inc()
			setPrincipal(c, principal)
			ctx := c.Request.Context()
			renewed := SoftFail(logger, "token renew", func() error {
				_, err := tokens.Renew(ctx, value)
				return err
			})
			if !renewed {
				utils.TokenRenewFailuresTotal.Inc()
			}
		}
		c.Next()
	}
}

// authenticateToken は検証・照会・ユーザー解決の順に進みます。途中の panic はエラーとして返します。
func authenticateToken(ctx context.Context, tokens TokenValidator, users UserFinder, value string, ttl time.Duration) (p *Principal, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("token authentication panicked: %v", r)
		}
	}()
	valid, err := tokens.Validate(ctx, value, ttl)
	if err != nil || !valid {
		return nil, err
	}
	token, err := tokens.Lookup(ctx, value)
	if err != nil || token == nil {
		return nil, err
	}
	user, err := users.FindActive(ctx, token.Username)
	if err != nil || user == nil {
		return nil, err
	}
	return &Principal{
		UserID:   user.ID,
		Username: user.Username,
		Source:   SourceToken,
		Token:    value,
		DeviceID: token.UUID,
	}, nil
}

// bearerToken は "Authorization: Bearer <token>" からトークンを取り出します。
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	value := strings.TrimSpace(header[len(bearerPrefix):])
	return value, value != ""
}
