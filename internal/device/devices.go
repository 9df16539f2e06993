package device

import (
	"context"
	"strings"
	"time"

	"deskserver/database"
	"deskserver/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Device はコンソールに表示する1台分の情報です。Alias と Tags は見ているユーザーから見た値です。
type Device struct {
	models.SystemInfo
	IsOnline bool     `json:"is_online"`
	Alias    string   `json:"alias"`
	TagsStr  string   `gorm:"column:tags" json:"tags_str"`
	Tags     []string `gorm:"-" json:"tags"`
}

// Filter は一覧の検索条件です。Status は "online" / "offline" / 空。
// UserID は別名とタグを解決するユーザーです。
type Filter struct {
	Page     int
	PageSize int
	Query    string
	OS       string
	Status   string
	UserID   uint
}

// Page は一覧の1ページ分です。
type Page struct {
	Devices  []Device `json:"devices"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.Query = strings.TrimSpace(f.Query)
	f.OS = strings.TrimSpace(f.OS)
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	return f
}

// List は新しい順にデバイスを返します。各行の is_online は window 内のハートビートの有無で、
// ピアIDかUUIDのどちらかが一致すればオンラインとみなします。
func (r *Registry) List(ctx context.Context, f Filter, window time.Duration) (*Page, error) {
	f = f.normalized()
	fresh := r.oracle.FreshHeartbeats(window)

	q := r.db.WithContext(ctx).Model(&models.SystemInfo{})
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(system_info.client_id) LIKE ? OR LOWER(system_info.hostname) LIKE ?", like, like)
	}
	if f.OS != "" {
		q = q.Where("LOWER(system_info.os) LIKE ?", "%"+strings.ToLower(f.OS)+"%")
	}
	switch f.Status {
	case "online":
		q = q.Where("EXISTS (?)", fresh)
	case "offline":
		q = q.Where("NOT EXISTS (?)", fresh)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, database.StorageError("device count", err)
	}

	devices := make([]Device, 0, f.PageSize)
	err := r.selectRows(q, f.UserID, fresh).
		Order("system_info.created_at DESC").Order("system_info.id DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).
		Find(&devices).Error
	if err != nil {
		return nil, database.StorageError("device list", err)
	}
	for i := range devices {
		devices[i].Tags = SplitTags(devices[i].TagsStr)
	}
	return &Page{Devices: devices, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (r *Registry) selectRows(q *gorm.DB, userID uint, fresh *gorm.DB) *gorm.DB {
	return q.Select("system_info.*, EXISTS (?) AS is_online, COALESCE((?), '') AS alias, COALESCE((?), '') AS tags",
		fresh, r.aliasOf(userID), r.tagsOf(userID))
}

// Get はピアIDでデバイスを探します。存在しなければ (nil, nil)。
// Tags には userID がこのデバイスに付けたタグをすべてのアドレス帳から集めて入れます。
func (r *Registry) Get(ctx context.Context, peerID string, userID uint, window time.Duration) (*Device, error) {
	var devices []Device
	q := r.db.WithContext(ctx).Model(&models.SystemInfo{}).Where("system_info.client_id = ?", peerID)
	err := r.selectRows(q, userID, r.oracle.FreshHeartbeats(window)).
		Order("system_info.id DESC").Limit(1).
		Find(&devices).Error
	if err != nil {
		return nil, database.StorageError("device lookup", err)
	}
	if len(devices) == 0 {
		return nil, nil
	}
	d := devices[0]
	tags, err := r.userTags(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	d.Tags = tags
	d.TagsStr = strings.Join(tags, ", ")
	return &d, nil
}

// Exists はピアIDのデバイスが登録済みかどうかを返します。
func (r *Registry) Exists(ctx context.Context, peerID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.SystemInfo{}).Where("client_id = ?", peerID).Count(&n).Error; err != nil {
		return false, database.StorageError("device lookup", err)
	}
	return n > 0, nil
}

// Count は登録済みデバイスの数を返します。
func (r *Registry) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.SystemInfo{}).Count(&n).Error; err != nil {
		return 0, database.StorageError("device count", err)
	}
	return n, nil
}
