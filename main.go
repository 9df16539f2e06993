package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"deskserver/auth"                 //ユーザー認証とトークン
	"deskserver/database"             //設定の読み込みとDB・Redisの初期化
	"deskserver/handlers"             //クライアントAPIとコンソールAPI
	"deskserver/internal/addressbook" //アドレス帳（別名とタグ）
	"deskserver/internal/audit"       //監査ログとログイン履歴
	"deskserver/internal/clock"       //時刻
	"deskserver/internal/device"      //ハートビートとシステム情報
	"deskserver/internal/liveness"    //オンライン判定
	"deskserver/internal/session"     //コンソールのセッション
	"deskserver/migrations"           //スキーマ
	"deskserver/utils"                //ロガーの初期化とCronジョブ(期限切れセッションの定期クリーンナップ)

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func main() {
	config, err := database.LoadConfig("config.json")
	if err != nil {
		panic(err) // ロガーより前なので停止するしかない
	}

	logger, err := utils.InitLogger(config.Debug, config.LogLevel) // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 非同期でデータベースとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		var err error
		db, err = database.InitDatabase(config, logger)
		if err != nil {
			logger.Fatal("データベースの初期化に失敗しました", zap.Error(err))
		}
		if err := migrations.Run(db, logger); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		// Redis はセッションを Redis に置くときだけ使う
		if config.SessionBackend == "redis" {
			var err error
			rdb, err = database.InitRedis(config, logger)
			if err != nil {
				logger.Fatal("Failed to initialize Redis", zap.Error(err))
			}
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	clk := clock.Real()
	ctx := context.Background()
	if _, err := auth.EnsureAdmin(ctx, db, config.AdminUsername, config.AdminPassword, config.BcryptCost, logger); err != nil {
		logger.Fatal("管理者ユーザーの作成に失敗しました", zap.Error(err))
	}

	var store session.Store = session.NewDBStore(db)
	if rdb != nil {
		store = session.NewRedisStore(rdb, clk)
	}
	sessions := session.NewManager(store, clk, config.SessionMaxAge(), config.SessionCookieSecure, logger)

	// クーロンスケジューラのセットアップと呼び出し
	cronJobs, err := utils.CronCleaner(sessions, logger)
	if err != nil {
		logger.Fatal("Cronジョブの登録に失敗しました", zap.Error(err))
	}
	defer cronJobs.Stop()

	oracle := liveness.New(db, clk, config.StatusBatchLimit)
	devices := device.NewRegistry(db, clk, oracle)
	router := handlers.NewRouter(handlers.RouterConfig{
		Users:          auth.NewUsers(db, clk),
		Tokens:         auth.NewTokenStore(db, clk),
		Sessions:       sessions,
		Devices:        devices,
		Oracle:         oracle,
		Books:          addressbook.New(db, clk, devices, oracle),
		Audit:          audit.NewRecorder(db, clk),
		TokenTTL:       config.TokenLifetime(),
		ListingWindow:  config.ListingWindow(),
		PollingWindow:  config.PollingWindow(),
		AllowedOrigins: config.AllowedOrigins(),
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              config.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTPサーバーを起動します", zap.String("addr", srv.Addr), zap.String("database", config.Database))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTPサーバーの起動に失敗しました", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("シャットダウンに失敗しました", zap.Error(err))
	}
}
