package models

import (
	"time"
)

// Token はログイン時にデバイスへ発行されるベアラートークンです。
// 同じユーザー・デバイスの組に複数の有効なトークンが存在してもよい。
type Token struct {
	ID         uint      `gorm:"primaryKey"`
	Username   string    `gorm:"size:255;not null;index"`
	UUID       string    `gorm:"column:uuid;size:255;not null;index"` // デバイスUUID
	Token      string    `gorm:"size:255;not null;uniqueIndex"`
	CreatedAt  time.Time `gorm:"not null"`
	LastUsedAt time.Time `gorm:"not null"` // スライディング有効期限の基準
}

func (Token) TableName() string { return "token" }
