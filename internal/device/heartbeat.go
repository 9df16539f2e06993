// Package device はクライアントからのハートビートとシステム情報を保存し、
// コンソール向けのデバイス一覧を組み立てます。
package device

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/internal/liveness"
	"deskserver/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMalformedInput はクライアントから受け取った値が解釈できないことを表します。
var ErrMalformedInput = errors.New("malformed input")

// Registry はデバイス関連のテーブルを読み書きします。
type Registry struct {
	db     *gorm.DB
	clock  clock.Clock
	oracle *liveness.Oracle
}

func NewRegistry(db *gorm.DB, clk clock.Clock, oracle *liveness.Oracle) *Registry {
	return &Registry{db: db, clock: clk, oracle: oracle}
}

// Heartbeat は1回分のハートビートです。ModifiedAt はクライアントが送ってきた生の文字列です。
type Heartbeat struct {
	UUID       string
	ClientID   string
	ModifiedAt string
	Ver        string
}

// isoLayouts は modified_at として受け付ける ISO-8601 の書式です。タイムゾーンが無ければ UTC とみなします。
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseModifiedAt は modified_at を時刻に変換します。
// 空なら now、数値なら UNIX 秒（小数可）、それ以外は ISO-8601 として解釈します。
func ParseModifiedAt(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return time.Time{}, fmt.Errorf("modified_at %q: %w", raw, ErrMalformedInput)
		}
		whole := int64(secs)
		nanos := int64((secs - float64(whole)) * 1e9)
		return time.Unix(whole, nanos).UTC(), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("modified_at %q: %w", raw, ErrMalformedInput)
}

// RecordHeartbeat は UUID をキーにハートビートを upsert します。
// 受信時刻 timestamp は毎回サーバー時刻で上書きします。入力が不正なら何も書きません。
func (r *Registry) RecordHeartbeat(ctx context.Context, hb Heartbeat) (*models.HeartBeat, error) {
	if strings.TrimSpace(hb.UUID) == "" {
		return nil, fmt.Errorf("uuid is required: %w", ErrMalformedInput)
	}
	now := r.clock.Now()
	modifiedAt, err := ParseModifiedAt(hb.ModifiedAt, now)
	if err != nil {
		return nil, err
	}

	row := models.HeartBeat{
		UUID:       hb.UUID,
		ClientID:   hb.ClientID,
		ModifiedAt: modifiedAt,
		Timestamp:  now,
		Ver:        hb.Ver,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_id", "modified_at", "timestamp", "ver"}),
	}).Create(&row).Error
	if err != nil {
		return nil, database.StorageError("heartbeat upsert", err)
	}
	return &row, nil
}
