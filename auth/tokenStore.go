package auth

import (
	"context"
	"strconv"
	"time"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTokenTTL はトークンの既定のスライディング有効期間です。
const DefaultTokenTTL = 3600 * time.Second

// TokenStore はデバイスとユーザーの組に対するベアラートークンを発行・検証・延長・失効させます。
//
// 「存在しない」「期限切れ」は false で返し、エラーにはしません。
// エラーはストレージ障害のときだけで、database.ErrStorageUnavailable に一致します。
type TokenStore struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewTokenStore(db *gorm.DB, clk clock.Clock) *TokenStore {
	return &TokenStore{db: db, clock: clk}
}

// Issue は新しいトークンを保存してその値を返します。
// 値は subject + deviceID + 高分解能タイムスタンプに対する UUIDv5 で、
// 同時刻の発行でも衝突しないようランダムな要素を混ぜています。
func (s *TokenStore) Issue(ctx context.Context, subject, deviceID string) (string, error) {
	now := s.clock.Now()
	ts := strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 9, 64)
	name := subject + deviceID + ts + uuid.NewString()
	value := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()

	token := models.Token{
		Username:   subject,
		UUID:       deviceID,
		Token:      value,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return "", database.StorageError("token issue", err)
	}
	return value, nil
}

// Lookup はトークンの行を返します。存在しなければ (nil, nil)。
func (s *TokenStore) Lookup(ctx context.Context, value string) (*models.Token, error) {
	var tokens []models.Token
	if err := s.db.WithContext(ctx).Where("token = ?", value).Limit(1).Find(&tokens).Error; err != nil {
		return nil, database.StorageError("token lookup", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return &tokens[0], nil
}

// Validate は last_used_at が now - ttl より新しければ true を返します。状態は変更しません。
// 存在しないトークンと期限切れのトークンは区別しません。
func (s *TokenStore) Validate(ctx context.Context, value string, ttl time.Duration) (bool, error) {
	if value == "" {
		return false, nil
	}
	token, err := s.Lookup(ctx, value)
	if err != nil || token == nil {
		return false, err
	}
	return token.LastUsedAt.After(s.clock.Now().Add(-ttl)), nil
}

// Renew は last_used_at を現在時刻に更新します。トークンが無ければ何も書かずに false。
// 同じトークンへの同時呼び出しは後勝ちになります。
func (s *TokenStore) Renew(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	result := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("token = ?", value).
		Update("last_used_at", s.clock.Now())
	if result.Error != nil {
		return false, database.StorageError("token renew", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RevokeByDevice はデバイスに紐づくトークンをすべて削除し、削除件数を返します。
func (s *TokenStore) RevokeByDevice(ctx context.Context, deviceID string) (int64, error) {
	return s.revoke(ctx, "uuid = ?", deviceID)
}

// RevokeBySubject はユーザーのトークンをすべて削除します。
func (s *TokenStore) RevokeBySubject(ctx context.Context, subject string) (int64, error) {
	return s.revoke(ctx, "username = ?", subject)
}

// RevokeByValue は1つのトークンを削除します。
func (s *TokenStore) RevokeByValue(ctx context.Context, value string) (int64, error) {
	return s.revoke(ctx, "token = ?", value)
}

func (s *TokenStore) revoke(ctx context.Context, query string, arg string) (int64, error) {
	result := s.db.WithContext(ctx).Where(query, arg).Delete(&models.Token{})
	if result.Error != nil {
		return 0, database.StorageError("token revoke", result.Error)
	}
	return result.RowsAffected, nil
}
