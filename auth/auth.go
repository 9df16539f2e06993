// Package auth はユーザー認証とデバイス用ベアラートークンを扱います。
package auth

import (
	"context"
	"errors"
	"strings"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials はユーザー名かパスワードが一致しないことを表します。
var ErrInvalidCredentials = errors.New("invalid username or password")

// HashPassword は bcrypt でパスワードをハッシュ化します。
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Users はユーザーの検索と認証を行います。
type Users struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewUsers(db *gorm.DB, clk clock.Clock) *Users {
	return &Users{db: db, clock: clk}
}

// FindActive は有効なユーザーを名前で探します。存在しなければ (nil, nil) を返します。
func (u *Users) FindActive(ctx context.Context, username string) (*models.User, error) {
	var users []models.User
	if err := u.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).Limit(1).Find(&users).Error; err != nil {
		return nil, database.StorageError("user lookup", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// FindByID は ID でユーザーを探します。無効化されたユーザーは返しません。
func (u *Users) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var users []models.User
	if err := u.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).Limit(1).Find(&users).Error; err != nil {
		return nil, database.StorageError("user lookup", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// Authenticate はユーザー名とパスワードを検証し、成功すれば最終ログイン時刻を更新します。
func (u *Users) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := u.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// タイミング差でユーザーの有無が分からないように比較だけは行う
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := u.clock.Now()
	if err := u.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		return nil, database.StorageError("user last_login", err)
	}
	user.LastLogin = &now
	return user, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.MinCost)

// EnsureAdmin は管理者ユーザーが存在しなければ作成します。起動時に一度だけ呼びます。
// 作成した場合は true を返します。
func EnsureAdmin(ctx context.Context, db *gorm.DB, username, password string, cost int, logger *zap.Logger) (bool, error) {
	// 論理削除済みの行もユーザー名の一意制約を占有するので含めて数える
	var existing []models.User
	if err := db.WithContext(ctx).Unscoped().Where("username = ?", username).Limit(1).Find(&existing).Error; err != nil {
		return false, database.StorageError("admin lookup", err)
	}
	if len(existing) > 0 {
		if existing[0].DeletedAt.Valid {
			logger.Warn("管理者ユーザーは削除済みのため作成しません", zap.String("username", username))
		}
		return false, nil
	}

	hash, err := HashPassword(password, cost)
	if err != nil {
		return false, err
	}
	admin := models.User{
		Username:    username,
		Password:    hash,
		IsActive:    true,
		IsSuperuser: true,
		IsStaff:     true,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, database.StorageError("admin create", err)
	}
	logger.Info("管理者ユーザーを作成しました", zap.String("username", username))
	return true, nil
}

// UserPage はユーザー一覧の1ページ分です。
type UserPage struct {
	Users    []models.User `json:"users"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListActive は有効なユーザーを新しい順に返します。q はユーザー名とメールアドレスの部分一致です。
func (u *Users) ListActive(ctx context.Context, q string, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = 20
	case pageSize > 100:
		pageSize = 100
	}
	query := u.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true)
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, database.StorageError("user count", err)
	}
	users := make([]models.User, 0, pageSize)
	if err := query.Order("created_at DESC").Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, database.StorageError("user list", err)
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

// CountActive は有効なユーザーの数を返します。
func (u *Users) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := u.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Count(&n).Error; err != nil {
		return 0, database.StorageError("user count", err)
	}
	return n, nil
}
