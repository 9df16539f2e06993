package models

import "time"

// Session はデータベースに保存されるプラットフォームセッションです。
type Session struct {
	SessionKey string    `gorm:"primaryKey;size:40"`
	UserID     uint      `gorm:"not null"`
	ExpireDate time.Time `gorm:"not null;index"`
}

func (Session) TableName() string { return "session" }
