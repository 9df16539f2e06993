// Package testdb はテスト用のインメモリ SQLite データベースを用意します。
package testdb

import (
	"testing"
	"time"

	"deskserver/migrations"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open はマイグレーション済みの空のデータベースを返します。テスト終了時に閉じられます。
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := migrations.Run(db, zap.NewNop()); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

// Broken は閉じた接続を持つ DB を返します。ストレージ障害の再現に使います。
func Broken(t testing.TB) *gorm.DB {
	t.Helper()
	db := Open(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.Close()
	return db
}
