package session

import (
	"context"
	"time"

	"deskserver/database"
	"deskserver/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore はセッションを session テーブルに保存します。
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Get(ctx context.Context, key string) (*Data, error) {
	var rows []models.Session
	if err := s.db.WithContext(ctx).Where("session_key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, database.StorageError("session get", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &Data{Key: rows[0].SessionKey, UserID: rows[0].UserID, ExpireAt: rows[0].ExpireDate}, nil
}

func (s *DBStore) Save(ctx context.Context, data *Data) error {
	row := models.Session{SessionKey: data.Key, UserID: data.UserID, ExpireDate: data.ExpireAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "expire_date"}),
	}).Create(&row).Error
	if err != nil {
		return database.StorageError("session save", err)
	}
	return nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("session_key = ?", key).Delete(&models.Session{}).Error; err != nil {
		return database.StorageError("session delete", err)
	}
	return nil
}

func (s *DBStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expire_date < ?", before).Delete(&models.Session{})
	if res.Error != nil {
		return 0, database.StorageError("session sweep", res.Error)
	}
	return res.RowsAffected, nil
}
