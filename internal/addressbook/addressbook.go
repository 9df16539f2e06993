// Package addressbook はユーザーごとのアドレス帳（別名・タグ）を管理します。
package addressbook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/internal/device"
	"deskserver/internal/liveness"
	"deskserver/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultBookName は各ユーザーに自動で作られる私用アドレス帳の名前です。
	DefaultBookName = "默认地址簿"
	TypePrivate     = "private"
	TypePublic      = "public"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDeviceNotFound = errors.New("device not found")
	ErrBookNotFound   = errors.New("address book not found")
)

// Service はアドレス帳のテーブルを読み書きします。
type Service struct {
	db      *gorm.DB
	clock   clock.Clock
	devices *device.Registry
	oracle  *liveness.Oracle
}

func New(db *gorm.DB, clk clock.Clock, devices *device.Registry, oracle *liveness.Oracle) *Service {
	return &Service{db: db, clock: clk, devices: devices, oracle: oracle}
}

// DefaultBook はユーザーの既定アドレス帳を返します。無ければ作ります。
func (s *Service) DefaultBook(ctx context.Context, userID uint) (*models.Personal, error) {
	var book models.Personal
	err := s.db.WithContext(ctx).
		Where(models.Personal{CreateUserID: userID, PersonalType: TypePrivate, PersonalName: DefaultBookName}).
		Attrs(models.Personal{GUID: uuid.NewString(), CreatedAt: s.clock.Now()}).
		FirstOrCreate(&book).Error
	if err != nil {
		return nil, database.StorageError("default book", err)
	}
	return &book, nil
}

func isDefault(book *models.Personal, userID uint) bool {
	return book.CreateUserID == userID && book.PersonalType == TypePrivate && book.PersonalName == DefaultBookName
}

func (s *Service) requireDevice(ctx context.Context, peerID string) error {
	ok, err := s.devices.Exists(ctx, peerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeviceNotFound
	}
	return nil
}

// RenameAlias は既定アドレス帳でのデバイスの別名を設定します。
func (s *Service) RenameAlias(ctx context.Context, userID uint, peerID, alias string) error {
	peerID, alias = strings.TrimSpace(peerID), strings.TrimSpace(alias)
	if peerID == "" || alias == "" {
		return ErrInvalidInput
	}
	if err := s.requireDevice(ctx, peerID); err != nil {
		return err
	}
	book, err := s.DefaultBook(ctx, userID)
	if err != nil {
		return err
	}
	return s.setAlias(s.db.WithContext(ctx), book.GUID, peerID, alias)
}

func (s *Service) setAlias(tx *gorm.DB, guid, peerID, alias string) error {
	row := models.Alias{PeerID: peerID, GUID: guid, Alias: alias, UpdatedAt: s.clock.Now()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "peer_id"}, {Name: "guid"}},
		DoUpdates: clause.AssignmentColumns([]string{"alias", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return database.StorageError("alias upsert", err)
	}
	return nil
}

// DeviceUpdate はインライン編集の内容です。nil のフィールドは変更しません。
// 空文字は削除を意味します。
type DeviceUpdate struct {
	Alias *string
	Tags  *string // カンマ区切り
}

// UpdateDevice は既定アドレス帳での別名とタグをまとめて更新します。
func (s *Service) UpdateDevice(ctx context.Context, userID uint, peerID string, u DeviceUpdate) error {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return ErrInvalidInput
	}
	if err := s.requireDevice(ctx, peerID); err != nil {
		return err
	}
	book, err := s.DefaultBook(ctx, userID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u.Alias != nil {
			if alias := strings.TrimSpace(*u.Alias); alias != "" {
				if err := s.setAlias(tx, book.GUID, peerID, alias); err != nil {
					return err
				}
			} else if err := tx.Where("peer_id = ? AND guid = ?", peerID, book.GUID).Delete(&models.Alias{}).Error; err != nil {
				return database.StorageError("alias delete", err)
			}
		}
		if u.Tags != nil {
			joined := strings.Join(device.SplitTags(*u.Tags), ", ")
			scope := tx.Where("user_id = ? AND peer_id = ? AND guid = ?", userID, peerID, book.GUID)
			if joined == "" {
				if err := scope.Delete(&models.ClientTags{}).Error; err != nil {
					return database.StorageError("client tags delete", err)
				}
				return nil
			}
			row := models.ClientTags{UserID: userID, PeerID: peerID, GUID: book.GUID, Tags: joined, UpdatedAt: s.clock.Now()}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "peer_id"}, {Name: "guid"}},
				DoUpdates: clause.AssignmentColumns([]string{"tags", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return database.StorageError("client tags upsert", err)
			}
		}
		return nil
	})
}

// AddTag はアドレス帳にタグの定義を追加します。色は受け取ったまま保存します。
// アドレス帳は userID のものでなければなりません。
func (s *Service) AddTag(ctx context.Context, userID uint, guid, name, color string) (*models.Tag, error) {
	guid, name, color = strings.TrimSpace(guid), strings.TrimSpace(name), strings.TrimSpace(color)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: tag is required", ErrInvalidInput)
	case color == "":
		return nil, fmt.Errorf("%w: color is required", ErrInvalidInput)
	case guid == "":
		return nil, fmt.Errorf("%w: guid is required", ErrInvalidInput)
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Personal{}).Where("guid = ? AND create_user_id = ?", guid, userID).Count(&n).Error; err != nil {
		return nil, database.StorageError("book lookup", err)
	}
	if n == 0 {
		return nil, ErrBookNotFound
	}

	tag := models.Tag{GUID: guid, Tag: name, Color: color, CreatedAt: s.clock.Now()}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, database.StorageError("tag create", err)
	}
	return &tag, nil
}
