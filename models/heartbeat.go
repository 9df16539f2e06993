package models

import "time"

// HeartBeat はクライアントから定期的に送られてくる生存通知です。
// UUID ごとに1行だけ保持し、受信のたびに上書きします。
type HeartBeat struct {
	ID         uint      `gorm:"primaryKey"`
	ClientID   string    `gorm:"size:255;index:idx_heartbeat_client_modified,priority:1"`       // ピアID
	UUID       string    `gorm:"column:uuid;size:255;not null;uniqueIndex"`                     // インストール固有ID
	ModifiedAt time.Time `gorm:"not null;index;index:idx_heartbeat_client_modified,priority:2"` // クライアント申告の時刻
	Timestamp  time.Time `gorm:"not null"`                                                      // サーバー受信時刻
	Ver        string    `gorm:"size:255"`
}

func (HeartBeat) TableName() string { return "heartbeat" }
