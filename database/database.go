package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deskserver/models"

	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxRetries = 3                  // 最大再試行回数
const retryInterval = 5 * time.Second // 再試行間の待機時間

// LoadConfig は filename（存在する場合）を読み込み、環境変数で上書きした設定を返します。
func LoadConfig(filename string) (models.Config, error) {
	var config models.Config

	v := viper.New()
	setDefaults(v)

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			v.SetConfigFile(filename)
			v.SetConfigType(strings.TrimPrefix(filepath.Ext(filename), "."))
			if err := v.ReadInConfig(); err != nil {
				return config, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
			}
		}
	}
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	config.Database = strings.ToLower(config.Database)
	if config.Database == "sqlite" {
		config.Database = "sqlite3"
	}
	switch config.Database {
	case "sqlite3", "mysql", "postgres":
	default:
		return config, fmt.Errorf("config: DATABASE %q is not supported", config.Database)
	}
	switch config.SessionBackend {
	case "db", "redis":
	default:
		return config, fmt.Errorf("config: SESSION_BACKEND %q is not supported", config.SessionBackend)
	}
	if config.TokenTTL <= 0 || config.SessionAge <= 0 || config.OnlineWindow <= 0 || config.PollWindow <= 0 {
		return config, errors.New("config: TOKEN_TTL, SESSION_AGE, ONLINE_WINDOW and POLL_WINDOW must be positive")
	}
	if config.StatusBatchLimit <= 0 {
		config.StatusBatchLimit = 500
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 21114)
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DATABASE", "sqlite3")
	v.SetDefault("SQLITE_PATH", filepath.Join("data", "db.sqlite3"))
	v.SetDefault("MYSQL_DATABASE", "rustdesk_api")
	v.SetDefault("MYSQL_HOST", "127.0.0.1")
	v.SetDefault("MYSQL_PORT", 3306)
	v.SetDefault("MYSQL_USER", "root")
	v.SetDefault("MYSQL_PASSWORD", "")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "rustdesk_api")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_BACKEND", "db")
	v.SetDefault("SESSION_AGE", 1209600) // 2週間
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("TOKEN_TTL", 3600)
	v.SetDefault("ONLINE_WINDOW", 300)
	v.SetDefault("POLL_WINDOW", 60)
	v.SetDefault("STATUS_BATCH_LIMIT", 500)

	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ORIGINS", "")
}

// Dialector は設定に応じた gorm のドライバを返します。
func Dialector(config models.Config) (gorm.Dialector, error) {
	switch config.Database {
	case "sqlite3":
		if dir := filepath.Dir(config.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		// 短時間のロック競合ですぐにエラーにならないよう busy_timeout を設定
		return sqlite.Open(config.SQLitePath + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"), nil
	case "mysql":
		// clientFoundRows: 値が変わらない UPDATE でも一致行数を返させる
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			config.MySQLUser, config.MySQLPassword, config.MySQLHost, config.MySQLPort, config.MySQLDatabase)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s dbname=%s password=%s sslmode=%s TimeZone=UTC",
			config.DBHost, config.DBUser, config.DBName, config.DBPassword, config.DBSSLMode)
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("DATABASE 設定エラー: %q", config.Database)
}

// InitDatabase はデータベースに接続します。失敗した場合は数回再試行します。
func InitDatabase(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(config)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if config.Debug {
		level = gormlogger.Info
	}
	gormConfig := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	for i := 0; i <= maxRetries; i++ {
		var gormDB *gorm.DB
		gormDB, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			logger.Info("データベースに接続しました", zap.String("database", config.Database))
			return gormDB, nil
		}
		logger.Error("データベース接続のリトライ", zap.Int("retry", i), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
}

// InitRedis は Redis クライアントを生成し、接続を確認します。
func InitRedis(config models.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		rdb.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", config.RedisAddr))
	return rdb, nil
}
