package handlers

import (
	"time"

	"deskserver/auth"
	"deskserver/internal/addressbook"
	"deskserver/internal/audit"
	"deskserver/internal/device"
	"deskserver/internal/liveness"
	"deskserver/internal/session"
	"deskserver/middlewares"
	"deskserver/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig はルーターの組み立てに必要なものです。
type RouterConfig struct {
	Users    *auth.Users
	Tokens   *auth.TokenStore
	Sessions *session.Manager
	Devices  *device.Registry
	Oracle   *liveness.Oracle
	Books    *addressbook.Service
	Audit    *audit.Recorder

	TokenTTL       time.Duration
	ListingWindow  time.Duration // 一覧の is_online
	PollingWindow  time.Duration // 状態のポーリングと WebSocket
	StreamInterval time.Duration
	AllowedOrigins []string

	Logger *zap.Logger
}

// NewRouter はクライアント API (/api)、コンソール API (/web)、/metrics を持つルーターを返します。
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 10 * time.Second
	}

	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RealIP(), utils.RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/metrics", utils.MetricsHandler())

	platform := middlewares.PlatformSession(cfg.Sessions, cfg.Users, logger)
	identity := middlewares.IdentityMiddleware(cfg.Tokens, cfg.Users, cfg.TokenTTL, logger)

	// クライアント API。本人の確認はするが、ログインは必須ではない
	api := router.Group("/api", platform, identity)
	api.POST("/heartbeat", Heartbeat(cfg.Devices, logger))
	api.POST("/sysinfo", SystemInfo(cfg.Devices, logger))
	api.POST("/login", ClientLogin(cfg.Users, cfg.Tokens, cfg.Sessions, cfg.Audit, logger))
	api.POST("/logout", ClientLogout(cfg.Tokens, cfg.Sessions, logger))
	api.POST("/audit/conn", AuditConn(cfg.Audit, logger))
	api.POST("/audit/file", AuditFile(cfg.Audit, logger))

	web := router.Group("/web")
	web.POST("/login", WebLogin(cfg.Users, cfg.Sessions, logger))
	web.POST("/logout", WebLogout(cfg.Sessions))

	console := web.Group("",
		middlewares.StrictSession(cfg.Sessions, logger),
		platform,
		identity,
		middlewares.RequireLogin(),
	)
	console.GET("/home", Home(cfg.Users, cfg.Devices, logger))
	console.GET("/devices", Devices(cfg.Devices, cfg.ListingWindow, logger))
	console.GET("/device/detail", DeviceDetail(cfg.Devices, cfg.ListingWindow, logger))
	console.GET("/device/statuses", DeviceStatuses(cfg.Oracle, cfg.PollingWindow, logger))
	console.GET("/device/statuses/ws", DeviceStatusStream(cfg.Oracle, NewUpgrader(cfg.AllowedOrigins), cfg.PollingWindow, cfg.StreamInterval, logger))
	console.POST("/device/alias", RenameAlias(cfg.Books, logger))
	console.POST("/device/update", UpdateDevice(cfg.Books, logger))
	console.POST("/tag", AddTag(cfg.Books, logger))
	console.GET("/personals", Personals(cfg.Books, cfg.ListingWindow, logger))
	console.GET("/users", Users(cfg.Users, logger))

	return router
}

// CORS（Cross-Origin Resource Sharing）ポリシー
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-No-Renew"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
