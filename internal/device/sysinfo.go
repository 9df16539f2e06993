package device

import (
	"context"
	"fmt"
	"strings"

	"deskserver/database"
	"deskserver/models"

	"gorm.io/gorm/clause"
)

// RecordSystemInfo はシステム情報を UUID をキーに upsert します。作成日時は最初の登録時のまま残ります。
func (r *Registry) RecordSystemInfo(ctx context.Context, info models.SystemInfo) (*models.SystemInfo, error) {
	if strings.TrimSpace(info.UUID) == "" {
		return nil, fmt.Errorf("uuid is required: %w", ErrMalformedInput)
	}
	info.ID = 0
	info.CreatedAt = r.clock.Now()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_id", "cpu", "hostname", "memory", "os", "username", "version"}),
	}).Create(&info).Error
	if err != nil {
		return nil, database.StorageError("sysinfo upsert", err)
	}
	return &info, nil
}
