package models

import "time"

// Personal はユーザーが持つアドレス帳です。GUID で参照されます。
type Personal struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	GUID         string    `gorm:"column:guid;size:64;not null;uniqueIndex" json:"guid"`
	CreateUserID uint      `gorm:"not null;index" json:"create_user_id"`
	PersonalName string    `gorm:"size:255;not null" json:"personal_name"`
	PersonalType string    `gorm:"size:20;not null" json:"personal_type"` // private / public
	CreatedAt    time.Time `json:"created_at"`
}

func (Personal) TableName() string { return "personal" }

// Alias はアドレス帳ごとのデバイスの別名です。(peer_id, guid) で1行。
type Alias struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PeerID    string    `gorm:"size:255;not null;uniqueIndex:idx_alias_peer_guid,priority:1" json:"peer_id"`
	GUID      string    `gorm:"column:guid;size:64;not null;uniqueIndex:idx_alias_peer_guid,priority:2;index" json:"guid"`
	Alias     string    `gorm:"size:255;not null" json:"alias"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Alias) TableName() string { return "alias" }

// Tag はアドレス帳で使えるタグの定義です。
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	GUID      string    `gorm:"column:guid;size:64;not null;index" json:"guid"`
	Tag       string    `gorm:"size:255;not null" json:"tag"`
	Color     string    `gorm:"size:32;not null" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func (Tag) TableName() string { return "tag" }

// ClientTags はユーザーがアドレス帳の中でデバイスに付けたタグです。Tags は ", " 区切り。
type ClientTags struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_client_tags_scope,priority:1" json:"user_id"`
	PeerID    string    `gorm:"size:255;not null;uniqueIndex:idx_client_tags_scope,priority:2" json:"peer_id"`
	GUID      string    `gorm:"column:guid;size:64;not null;uniqueIndex:idx_client_tags_scope,priority:3;index" json:"guid"`
	Tags      string    `gorm:"type:text;not null" json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClientTags) TableName() string { return "client_tags" }
