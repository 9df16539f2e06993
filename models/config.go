package models

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config はサーバー全体の設定情報を保持します。
// config.json（任意）と環境変数から database.LoadConfig で読み込まれます。
type Config struct {
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	Debug    bool   `mapstructure:"DEBUG"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// データベース ("sqlite3", "mysql", "postgres")
	Database   string `mapstructure:"DATABASE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	MySQLDatabase string `mapstructure:"MYSQL_DATABASE"`
	MySQLHost     string `mapstructure:"MYSQL_HOST"`
	MySQLPort     int    `mapstructure:"MYSQL_PORT"`
	MySQLUser     string `mapstructure:"MYSQL_USER"`
	MySQLPassword string `mapstructure:"MYSQL_PASSWORD"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// セッション保存先 ("db" または "redis")
	SessionBackend      string `mapstructure:"SESSION_BACKEND"`
	SessionCookieSecure bool   `mapstructure:"SESSION_COOKIE_SECURE"`
	// 以下の時間はすべて秒単位
	SessionAge       int `mapstructure:"SESSION_AGE"`
	TokenTTL         int `mapstructure:"TOKEN_TTL"`
	OnlineWindow     int `mapstructure:"ONLINE_WINDOW"`
	PollWindow       int `mapstructure:"POLL_WINDOW"`
	StatusBatchLimit int `mapstructure:"STATUS_BATCH_LIMIT"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	BcryptCost    int    `mapstructure:"BCRYPT_COST"`

	// カンマ区切りのオリジン一覧
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

// Addr は HTTP サーバーの待ち受けアドレスを返します。
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// SessionMaxAge はプラットフォームセッションの有効期間です。
func (c Config) SessionMaxAge() time.Duration { return seconds(c.SessionAge) }

// TokenLifetime はトークンのスライディング有効期間です。
func (c Config) TokenLifetime() time.Duration { return seconds(c.TokenTTL) }

// ListingWindow は一覧画面で使うオンライン判定の幅です。
func (c Config) ListingWindow() time.Duration { return seconds(c.OnlineWindow) }

// PollingWindow はステータスポーリングで使うオンライン判定の幅です。
func (c Config) PollingWindow() time.Duration { return seconds(c.PollWindow) }

// AllowedOrigins は CORSOrigins を分割して返します。
func (c Config) AllowedOrigins() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
