// Package audit はクライアントから報告される接続・ファイル転送の監査ログとログイン履歴を保存します。
package audit

import (
	"context"
	"errors"
	"strings"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/models"

	"gorm.io/gorm"
)

// ErrMalformedInput は必須の値が欠けていることを表します。
var ErrMalformedInput = errors.New("malformed audit record")

// ActionClose は接続の終了を表す action です。
const ActionClose = "close"

// Recorder は監査テーブルに書き込みます。
type Recorder struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewRecorder(db *gorm.DB, clk clock.Clock) *Recorder {
	return &Recorder{db: db, clock: clk}
}

// ConnEvent は接続監査の1イベントです。
type ConnEvent struct {
	ConnID           int64
	Action           string
	ControlledUUID   string
	SourceIP         string
	SessionID        string
	ControllerPeerID string
	Type             int
	Username         string
}

// LogConn は conn_id ごとの行を作るか更新します。
// 後から届いたイベントは空でない値だけを上書きし、close で closed_at を記録します。
func (r *Recorder) LogConn(ctx context.Context, ev ConnEvent) (*models.AuditConn, error) {
	if ev.ConnID == 0 {
		return nil, ErrMalformedInput
	}
	now := r.clock.Now()
	var row models.AuditConn
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found []models.AuditConn
		if err := tx.Where("conn_id = ?", ev.ConnID).Limit(1).Find(&found).Error; err != nil {
			return err
		}
		if len(found) == 0 {
			row = models.AuditConn{
				ConnID:           ev.ConnID,
				Action:           ev.Action,
				ControlledUUID:   ev.ControlledUUID,
				SourceIP:         ev.SourceIP,
				SessionID:        ev.SessionID,
				ControllerPeerID: ev.ControllerPeerID,
				Type:             ev.Type,
				Username:         ev.Username,
				CreatedAt:        now,
			}
			if ev.Action == ActionClose {
				row.ClosedAt = &now
			}
			return tx.Create(&row).Error
		}

		row = found[0]
		updates := map[string]any{"action": ev.Action}
		set := func(col, v string) {
			if v != "" {
				updates[col] = v
			}
		}
		set("controlled_uuid", ev.ControlledUUID)
		set("source_ip", ev.SourceIP)
		set("session_id", ev.SessionID)
		set("controller_peer_id", ev.ControllerPeerID)
		set("username", ev.Username)
		if ev.Type != 0 {
			updates["type"] = ev.Type
		}
		if ev.Action == ActionClose {
			updates["closed_at"] = now
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&row, row.ID).Error
	})
	if err != nil {
		return nil, database.StorageError("audit conn", err)
	}
	return &row, nil
}

// FileEvent はファイル転送監査の1イベントです。Username は転送を行ったユーザー名です。
type FileEvent struct {
	SourceID      string
	TargetID      string
	TargetUUID    string
	TargetIP      string
	OperationType int
	IsFile        bool
	RemotePath    string
	FileInfo      string
	FileNum       int
	Username      string
}

// LogFile はファイル転送を記録します。ユーザー名は大文字小文字を区別せずに引き、見つからなければ user_id は NULL。
func (r *Recorder) LogFile(ctx context.Context, ev FileEvent) (*models.AuditFile, error) {
	row := models.AuditFile{
		SourceID:      ev.SourceID,
		TargetID:      ev.TargetID,
		TargetUUID:    ev.TargetUUID,
		TargetIP:      ev.TargetIP,
		OperationType: ev.OperationType,
		IsFile:        ev.IsFile,
		RemotePath:    ev.RemotePath,
		FileInfo:      ev.FileInfo,
		FileNum:       ev.FileNum,
		CreatedAt:     r.clock.Now(),
	}
	db := r.db.WithContext(ctx)
	if name := strings.ToLower(strings.TrimSpace(ev.Username)); name != "" {
		var ids []uint
		if err := db.Model(&models.User{}).Where("LOWER(username) = ?", name).Limit(1).Pluck("id", &ids).Error; err != nil {
			return nil, database.StorageError("audit user lookup", err)
		}
		if len(ids) > 0 {
			row.UserID = &ids[0]
		}
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, database.StorageError("audit file", err)
	}
	return &row, nil
}

// LogLogin はログイン履歴を1行追加します。
func (r *Recorder) LogLogin(ctx context.Context, entry models.LoginLog) error {
	entry.ID = 0
	entry.CreatedAt = r.clock.Now()
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return database.StorageError("login log", err)
	}
	return nil
}
