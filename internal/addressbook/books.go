package addressbook

import (
	"context"
	"strings"
	"time"

	"deskserver/database"
	"deskserver/internal/device"
	"deskserver/models"
)

// BookFilter はアドレス帳一覧の絞り込みです。Query は GUID の部分一致、Type は private / public / 空。
type BookFilter struct {
	Query string
	Type  string
}

// Book は一覧に出す1冊分です。
type Book struct {
	models.Personal
	DisplayName string `json:"display_name"`
	IsDefault   bool   `json:"is_default"`
	DeviceCount int    `json:"device_count"`
}

// BookDevice はアドレス帳の中の1台です。別名とタグはそのアドレス帳でのもの。
type BookDevice struct {
	PeerID     string    `json:"peer_id"`
	Alias      string    `json:"alias"`
	Tags       []string  `json:"tags"`
	TagsStr    string    `json:"tags_str"`
	DeviceName string    `json:"device_name"`
	OS         string    `json:"os"`
	Version    string    `json:"version"`
	IsOnline   bool      `json:"is_online"`
	CreatedAt  time.Time `json:"created_at"`
}

// Overview はアドレス帳画面の内容です。Current は既定のアドレス帳（無ければ先頭）です。
type Overview struct {
	Books   []Book       `json:"personals"`
	Current *Book        `json:"default_personal"`
	Tags    []models.Tag `json:"tags"`
	Devices []BookDevice `json:"devices"`
}

// Overview はユーザーのアドレス帳一覧と、既定のアドレス帳の中身を返します。
// オンライン判定は window 内のハートビートで、ピアIDかUUIDのどちらかが一致すればよい。
func (s *Service) Overview(ctx context.Context, userID uint, username string, f BookFilter, window time.Duration) (*Overview, error) {
	q := s.db.WithContext(ctx).Where("create_user_id = ?", userID)
	if query := strings.TrimSpace(f.Query); query != "" {
		q = q.Where("LOWER(guid) LIKE ?", "%"+strings.ToLower(query)+"%")
	}
	if typ := strings.TrimSpace(f.Type); typ == TypePrivate || typ == TypePublic {
		q = q.Where("personal_type = ?", typ)
	}
	var personals []models.Personal
	if err := q.Order("created_at DESC").Order("id DESC").Find(&personals).Error; err != nil {
		return nil, database.StorageError("book list", err)
	}

	out := &Overview{Books: make([]Book, 0, len(personals)), Tags: []models.Tag{}, Devices: []BookDevice{}}
	for i := range personals {
		members, err := s.members(ctx, personals[i].GUID)
		if err != nil {
			return nil, err
		}
		b := Book{
			Personal:    personals[i],
			DisplayName: personals[i].PersonalName,
			IsDefault:   isDefault(&personals[i], userID),
			DeviceCount: len(members),
		}
		if b.PersonalName == username+"_personal" {
			b.DisplayName = DefaultBookName
		}
		out.Books = append(out.Books, b)
	}
	if len(out.Books) == 0 {
		return out, nil
	}

	current := &out.Books[0]
	for i := range out.Books {
		if out.Books[i].IsDefault {
			current = &out.Books[i]
			break
		}
	}
	out.Current = current

	if err := s.db.WithContext(ctx).Where("guid = ?", current.GUID).Order("id").Find(&out.Tags).Error; err != nil {
		return nil, database.StorageError("tag list", err)
	}
	devices, err := s.bookDevices(ctx, current.GUID, window)
	if err != nil {
		return nil, err
	}
	out.Devices = devices
	current.DeviceCount = len(devices)
	return out, nil
}

// members はアドレス帳に別名かタグのあるピアIDです。
func (s *Service) members(ctx context.Context, guid string) ([]string, error) {
	var aliased, tagged []string
	if err := s.db.WithContext(ctx).Model(&models.Alias{}).Where("guid = ?", guid).Pluck("peer_id", &aliased).Error; err != nil {
		return nil, database.StorageError("book members", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.ClientTags{}).Where("guid = ?", guid).Pluck("peer_id", &tagged).Error; err != nil {
		return nil, database.StorageError("book members", err)
	}
	return device.SplitTags(strings.Join(append(aliased, tagged...), ",")), nil
}

type bookRow struct {
	models.SystemInfo
	IsOnline bool
	Alias    string
	Tags     string
}

func (s *Service) bookDevices(ctx context.Context, guid string, window time.Duration) ([]BookDevice, error) {
	members, err := s.members(ctx, guid)
	if err != nil || len(members) == 0 {
		return []BookDevice{}, err
	}

	alias := s.db.Model(&models.Alias{}).Select("alias.alias").
		Where("alias.peer_id = system_info.client_id AND alias.guid = ?", guid).Limit(1)
	tags := s.db.Model(&models.ClientTags{}).Select("client_tags.tags").
		Where("client_tags.peer_id = system_info.client_id AND client_tags.guid = ?", guid).Order("client_tags.id").Limit(1)

	var rows []bookRow
	err = s.db.WithContext(ctx).Model(&models.SystemInfo{}).
		Select("system_info.*, EXISTS (?) AS is_online, COALESCE((?), '') AS alias, COALESCE((?), '') AS tags",
			s.oracle.FreshHeartbeats(window), alias, tags).
		Where("system_info.client_id IN ?", members).
		Order("system_info.created_at DESC").Order("system_info.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, database.StorageError("book devices", err)
	}

	out := make([]BookDevice, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		// 同じピアIDの system_info が複数あれば新しい方だけ
		if _, dup := seen[r.ClientID]; dup {
			continue
		}
		seen[r.ClientID] = struct{}{}
		out = append(out, BookDevice{
			PeerID:     r.ClientID,
			Alias:      r.Alias,
			Tags:       device.SplitTags(r.Tags),
			TagsStr:    r.Tags,
			DeviceName: r.Hostname,
			OS:         r.OS,
			Version:    r.Version,
			IsOnline:   r.IsOnline,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}
