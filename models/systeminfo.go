package models

import "time"

// SystemInfo はクライアントが報告するデバイスのシステム情報です。
type SystemInfo struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ClientID  string    `gorm:"size:255;index" json:"id"`
	CPU       string    `gorm:"column:cpu" json:"cpu"`
	Hostname  string    `gorm:"size:255" json:"hostname"`
	Memory    string    `gorm:"size:50" json:"memory"`
	OS        string    `gorm:"column:os" json:"os"`
	Username  string    `gorm:"size:255" json:"username"`
	UUID      string    `gorm:"column:uuid;size:255;uniqueIndex" json:"uuid"`
	Version   string    `gorm:"size:50" json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

func (SystemInfo) TableName() string { return "system_info" }
