package models

import "time"

// AuditConn はリモート接続の監査ログです。conn_id ごとに1行で、開始から終了までを更新していきます。
type AuditConn struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ConnID           int64      `gorm:"not null;uniqueIndex" json:"conn_id"`
	Action           string     `gorm:"size:32" json:"action"` // 最後に受け取った action
	ControlledUUID   string     `gorm:"column:controlled_uuid;size:255;index" json:"controlled_uuid"`
	SourceIP         string     `gorm:"size:64" json:"source_ip"`
	SessionID        string     `gorm:"size:255" json:"session_id"`
	ControllerPeerID string     `gorm:"size:255;index" json:"controller_peer_id"`
	Type             int        `gorm:"not null;default:0" json:"type"`
	Username         string     `gorm:"size:255" json:"username"`
	CreatedAt        time.Time  `json:"created_at"`
	ClosedAt         *time.Time `json:"closed_at"`
}

func (AuditConn) TableName() string { return "audit_conn" }

// AuditFile はファイル転送の監査ログです。OperationType は 0=ダウンロード 1=アップロード。
type AuditFile struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SourceID      string    `gorm:"size:255;index" json:"source_id"`
	TargetID      string    `gorm:"size:255;index" json:"target_id"`
	TargetUUID    string    `gorm:"column:target_uuid;size:255" json:"target_uuid"`
	TargetIP      string    `gorm:"size:64" json:"target_ip"`
	OperationType int       `gorm:"not null" json:"operation_type"`
	IsFile        bool      `json:"is_file"`
	RemotePath    string    `gorm:"type:text" json:"remote_path"`
	FileInfo      string    `gorm:"type:text" json:"file_info"`
	FileNum       int       `json:"file_num"`
	UserID        *uint     `gorm:"index" json:"user_id"` // 名前からユーザーが引けなければ NULL
	CreatedAt     time.Time `json:"created_at"`
}

func (AuditFile) TableName() string { return "audit_file" }

// LoginLog はクライアントからのログイン成功の記録です。
type LoginLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:255;index" json:"username"`
	ClientID   string    `gorm:"size:255" json:"client_id"`
	UUID       string    `gorm:"column:uuid;size:255" json:"uuid"`
	AutoLogin  bool      `json:"auto_login"`
	LoginType  string    `gorm:"size:50" json:"login_type"`
	OS         string    `gorm:"column:os;size:50" json:"os"`
	DeviceType string    `gorm:"size:50" json:"device_type"`
	DeviceName string    `gorm:"size:255" json:"device_name"`
	IP         string    `gorm:"column:ip;size:64" json:"ip"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (LoginLog) TableName() string { return "login_log" }
