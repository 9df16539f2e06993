package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HeartbeatsTotal はハートビートの受信数（result: ok / malformed / error）。
	HeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deskserver",
		Name:      "heartbeats_total",
		Help:      "Heartbeats received from clients.",
	}, []string{"result"})

	// TokensIssuedTotal はログインで発行したトークン数。
	TokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deskserver",
		Name:      "tokens_issued_total",
		Help:      "Bearer tokens issued on login.",
	})

	// TokenAuthTotal はベアラートークンによる認証の結果（result: ok / rejected / error）。
	TokenAuthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deskserver",
		Name:      "token_auth_total",
		Help:      "Bearer token authentication attempts.",
	}, []string{"result"})

	// TokenRenewFailuresTotal は握りつぶした延長失敗の数。
	TokenRenewFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deskserver",
		Name:      "token_renew_failures_total",
		Help:      "Token renewals that failed and were ignored.",
	})

	// SessionRejectionsTotal はコンソールで拒否したリクエスト数（reason: missing / unknown / expired）。
	SessionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deskserver",
		Name:      "session_rejections_total",
		Help:      "Console requests rejected by the session policy.",
	}, []string{"reason"})

	// SessionsSweptTotal は定期ジョブで削除したセッション数。
	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deskserver",
		Name:      "sessions_swept_total",
		Help:      "Expired platform sessions removed by the sweeper.",
	})
)

// MetricsHandler は /metrics を返します。
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
