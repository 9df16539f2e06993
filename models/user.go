package models

import (
	"time"

	"gorm.io/gorm"
)

// User はコンソールとクライアントにログインするユーザーです。
type User struct {
	gorm.Model
	Username    string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Password    string     `gorm:"not null" json:"-"` // bcrypt ハッシュ
	Email       string     `gorm:"size:254" json:"email"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser bool       `gorm:"not null;default:false" json:"is_superuser"`
	IsStaff     bool       `gorm:"not null;default:false" json:"is_staff"`
	LastLogin   *time.Time `json:"last_login"`
}
