// Package migrations はスキーマ変更を日付順のステップとして適用します。
package migrations

import (
	"fmt"
	"time"

	"deskserver/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaMigration は適用済みステップの記録です。
type SchemaMigration struct {
	Version   string `gorm:"primaryKey;size:64"`
	AppliedAt time.Time
}

type step struct {
	version string
	apply   func(tx *gorm.DB) error
}

// 追加するときは末尾に。適用済みのステップは書き換えないこと。
var steps = []step{
	{"202601101200_create_users_and_tokens", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.User{}, &models.Token{})
	}},
	{"202601101210_create_heartbeat_and_system_info", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.HeartBeat{}, &models.SystemInfo{})
	}},
	{"202601101220_create_session", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.Session{})
	}},
	{"202610151000_create_address_book", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.Personal{}, &models.Alias{}, &models.Tag{}, &models.ClientTags{})
	}},
	{"202610151010_create_audit_and_login_log", func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.AuditConn{}, &models.AuditFile{}, &models.LoginLog{})
	}},
}

// Run は未適用のステップを順に実行します。何度呼んでも安全です。
func Run(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("schema_migrations の作成に失敗しました: %w", err)
	}

	var applied []string
	if err := db.Model(&SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, s := range steps {
		if done[s.version] {
			continue
		}
		if err := s.apply(db); err != nil {
			logger.Error("Error migrating tables", zap.String("version", s.version), zap.Error(err))
			return fmt.Errorf("migration %s: %w", s.version, err)
		}
		if err := db.Create(&SchemaMigration{Version: s.version, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return err
		}
		logger.Info("マイグレーションを適用しました", zap.String("version", s.version))
	}
	return nil
}
