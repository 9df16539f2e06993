package device

import (
	"context"
	"strings"

	"deskserver/database"
	"deskserver/models"

	"gorm.io/gorm"
)

// SplitTags は "a, b,,a" を ["a" "b"] にします。空白を除き、重複は最初の1つだけ残します。
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		tags = append(tags, p)
	}
	return tags
}

// aliasOf は system_info の行の別名を取る相関サブクエリです。
// userID 自身のアドレス帳の別名を優先し、無ければ誰かが付けた別名を使います。
func (r *Registry) aliasOf(userID uint) *gorm.DB {
	return r.db.Model(&models.Alias{}).Select("alias.alias").
		Joins("LEFT JOIN personal ON personal.guid = alias.guid AND personal.create_user_id = ?", userID).
		Where("alias.peer_id = system_info.client_id").
		Order("CASE WHEN personal.id IS NULL THEN 1 ELSE 0 END").Order("alias.id").
		Limit(1)
}

// tagsOf は userID がその行のデバイスに付けたタグ（最初の1行）を取る相関サブクエリです。
func (r *Registry) tagsOf(userID uint) *gorm.DB {
	return r.db.Model(&models.ClientTags{}).Select("client_tags.tags").
		Where("client_tags.peer_id = system_info.client_id AND client_tags.user_id = ?", userID).
		Order("client_tags.id").
		Limit(1)
}

// userTags は userID が peerID に付けたタグをすべてのアドレス帳から集めます。
func (r *Registry) userTags(ctx context.Context, userID uint, peerID string) ([]string, error) {
	var rows []string
	err := r.db.WithContext(ctx).Model(&models.ClientTags{}).
		Where("user_id = ? AND peer_id = ?", userID, peerID).
		Order("id").Pluck("tags", &rows).Error
	if err != nil {
		return nil, database.StorageError("client tags lookup", err)
	}
	return SplitTags(strings.Join(rows, ",")), nil
}
