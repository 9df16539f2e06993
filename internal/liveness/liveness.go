// Package liveness はハートビートの鮮度からデバイスのオンライン状態を判定します。
// 読み取り専用で、ハートビートやトークンを書き換えることはありません。
package liveness

import (
	"context"
	"time"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/models"

	"gorm.io/gorm"
)

// DefaultBatchLimit は BulkStatus が一度に扱う識別子の上限です。
const DefaultBatchLimit = 500

// DeviceIdentity は1台のデバイスを指す手がかりです。
// 設定されているフィールドのどちらか一方でも一致すれば同じデバイスとみなします。
type DeviceIdentity struct {
	ClientID string // ピアID
	UUID     string // インストール固有ID
}

// Empty は手がかりが1つもないときに true を返します。
func (d DeviceIdentity) Empty() bool {
	return d.ClientID == "" && d.UUID == ""
}

// Oracle はハートビートテーブルを参照してオンライン判定を行います。
type Oracle struct {
	db         *gorm.DB
	clock      clock.Clock
	batchLimit int
}

// New は Oracle を返します。batchLimit が 0 以下なら DefaultBatchLimit を使います。
func New(db *gorm.DB, clk clock.Clock, batchLimit int) *Oracle {
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	return &Oracle{db: db, clock: clk, batchLimit: batchLimit}
}

// IsOnline は identity に一致するハートビートのうち、modified_at が now - window 以降のものがあれば true。
func (o *Oracle) IsOnline(ctx context.Context, identity DeviceIdentity, window time.Duration) (bool, error) {
	if identity.Empty() {
		return false, nil
	}
	threshold := o.clock.Now().Add(-window)

	q := o.db.WithContext(ctx).Model(&models.HeartBeat{}).Where("modified_at >= ?", threshold)
	switch {
	case identity.ClientID != "" && identity.UUID != "":
		q = q.Where(o.db.Where("client_id = ?", identity.ClientID).Or("uuid = ?", identity.UUID))
	case identity.ClientID != "":
		q = q.Where("client_id = ?", identity.ClientID)
	default:
		q = q.Where("uuid = ?", identity.UUID)
	}

	var ids []uint
	if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, database.StorageError("liveness lookup", err)
	}
	return len(ids) > 0, nil
}

// BulkStatus はピアIDの集合についてオンライン状態を1回のクエリで求めます。
// 結果は（上限で切り詰めた後の）入力すべてをキーに持ちます。上限を超えた分は黙って捨てます。
func (o *Oracle) BulkStatus(ctx context.Context, clientIDs []string, window time.Duration) (map[string]bool, error) {
	ids := o.Normalize(clientIDs)
	status := make(map[string]bool, len(ids))
	query := make([]string, 0, len(ids))
	for _, id := range ids {
		status[id] = false
		if id != "" {
			query = append(query, id)
		}
	}
	if len(query) == 0 {
		return status, nil
	}

	var online []string
	err := o.db.WithContext(ctx).Model(&models.HeartBeat{}).
		Where("client_id IN ? AND modified_at >= ?", query, o.clock.Now().Add(-window)).
		Distinct().Pluck("client_id", &online).Error
	if err != nil {
		return nil, database.StorageError("liveness bulk lookup", err)
	}
	for _, id := range online {
		if _, ok := status[id]; ok {
			status[id] = true
		}
	}
	return status, nil
}

// Normalize は重複を除き、先頭から上限までの識別子を返します。
func (o *Oracle) Normalize(clientIDs []string) []string {
	seen := make(map[string]struct{}, len(clientIDs))
	out := make([]string, 0, min(len(clientIDs), o.batchLimit))
	for _, id := range clientIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		if len(out) == o.batchLimit {
			break
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FreshHeartbeats は system_info の行に対応する新しいハートビートを探す相関サブクエリです。
// 一覧画面で EXISTS (?) として使い、IsOnline と同じ「どちらかが一致」の規則で判定します。
func (o *Oracle) FreshHeartbeats(window time.Duration) *gorm.DB {
	return o.db.Model(&models.HeartBeat{}).Select("1").
		Where("((system_info.client_id <> '' AND heartbeat.client_id = system_info.client_id) OR (system_info.uuid <> '' AND heartbeat.uuid = system_info.uuid))").
		Where("heartbeat.modified_at >= ?", o.clock.Now().Add(-window))
}
