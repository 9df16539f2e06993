package addressbook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"deskserver/database"
	"deskserver/internal/clock"
	"deskserver/internal/device"
	"deskserver/internal/liveness"
	"deskserver/internal/testdb"
	"deskserver/models"

	"gorm.io/gorm"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	clk := clock.Fake(epoch)
	oracle := liveness.New(db, clk, 0)
	return New(db, clk, device.NewRegistry(db, clk, oracle), oracle)
}

func seedDevice(t *testing.T, db *gorm.DB, peerID, uuid string, heartbeatAge time.Duration) {
	t.Helper()
	if err := db.Create(&models.SystemInfo{ClientID: peerID, UUID: uuid, Hostname: "host-" + peerID, OS: "linux", Version: "1.4.2", CreatedAt: epoch}).Error; err != nil {
		t.Fatal(err)
	}
	if heartbeatAge > 0 {
		if err := db.Create(&models.HeartBeat{ClientID: peerID, UUID: uuid, ModifiedAt: epoch.Add(-heartbeatAge), Timestamp: epoch}).Error; err != nil {
			t.Fatal(err)
		}
	}
}

func ptr(s string) *string { return &s }

func TestDefaultBookIsCreatedOnce(t *testing.T) {
	db := testdb.Open(t)
	s := newService(t, db)
	ctx := context.Background()

	first, err := s.DefaultBook(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.DefaultBook(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.GUID == "" || first.GUID != second.GUID {
		t.Errorf("guids = %q, %q; want one stable book", first.GUID, second.GUID)
	}
	if first.PersonalType != TypePrivate || first.PersonalName != DefaultBookName {
		t.Errorf("book = %+v", first)
	}
	other, _ := s.DefaultBook(ctx, 2)
	if other.GUID == first.GUID {
		t.Error("users must not share a default book")
	}
}

func TestRenameAlias(t *testing.T) {
	db := testdb.Open(t)
	s := newService(t, db)
	ctx := context.Background()
	seedDevice(t, db, "peer-1", "u1", 0)

	tests := []struct {
		name    string
		peer    string
		alias   string
		wantErr error
	}{
		{"missing peer", "", "x", ErrInvalidInput},
		{"blank alias", "peer-1", "   ", ErrInvalidInput},
		{"unknown device", "peer-9", "x", ErrDeviceNotFound},
		{"ok", "peer-1", " office ", nil},
		{"rename", "peer-1", "desk", nil},
	}
	for _, tt := range tests {
		if err := s.RenameAlias(ctx, 1, tt.peer, tt.alias); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	var rows []models.Alias
	db.Find(&rows)
	if len(rows) != 1 || rows[0].Alias != "desk" || rows[0].PeerID != "peer-1" {
		t.Errorf("aliases = %+v, want one upserted row", rows)
	}
}

func TestUpdateDevice(t *testing.T) {
	db := testdb.Open(t)
	s := newService(t, db)
	ctx := context.Background()
	seedDevice(t, db, "peer-1", "u1", 0)

	if err := s.UpdateDevice(ctx, 1, "peer-1", DeviceUpdate{Alias: ptr("office"), Tags: ptr(" work, win ,work,, ")}); err != nil {
		t.Fatal(err)
	}
	book, _ := s.DefaultBook(ctx, 1)
	var tags models.ClientTags
	if err := db.Where("user_id = ? AND peer_id = ? AND guid = ?", 1, "peer-1", book.GUID).First(&tags).Error; err != nil {
		t.Fatal(err)
	}
	if tags.Tags != "work, win" {
		t.Errorf("tags = %q, want normalized %q", tags.Tags, "work, win")
	}

	// nil は触らない
	if err := s.UpdateDevice(ctx, 1, "peer-1", DeviceUpdate{Tags: ptr("vpn")}); err != nil {
		t.Fatal(err)
	}
	var alias models.Alias
	db.Where("peer_id = ? AND guid = ?", "peer-1", book.GUID).First(&alias)
	if alias.Alias != "office" {
		t.Errorf("alias = %q, want untouched", alias.Alias)
	}

	// 空文字は削除
	if err := s.UpdateDevice(ctx, 1, "peer-1", DeviceUpdate{Alias: ptr(""), Tags: ptr(" , ")}); err != nil {
		t.Fatal(err)
	}
	var n int64
	db.Model(&models.Alias{}).Count(&n)
	if n != 0 {
		t.Errorf("alias rows = %d after clearing", n)
	}
	db.Model(&models.ClientTags{}).Count(&n)
	if n != 0 {
		t.Errorf("client_tags rows = %d after clearing", n)
	}

	if err := s.UpdateDevice(ctx, 1, "peer-9", DeviceUpdate{}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("unknown device err = %v", err)
	}
	if err := s.UpdateDevice(ctx, 1, " ", DeviceUpdate{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank peer err = %v", err)
	}
}

func TestAddTag(t *testing.T) {
	db := testdb.Open(t)
	s := newService(t, db)
	ctx := context.Background()
	book, _ := s.DefaultBook(ctx, 1)

	tests := []struct {
		name    string
		user    uint
		guid    string
		tag     string
		color   string
		wantErr error
	}{
		{"no name", 1, book.GUID, "", "#fff", ErrInvalidInput},
		{"no color", 1, book.GUID, "work", "", ErrInvalidInput},
		{"no guid", 1, "", "work", "#fff", ErrInvalidInput},
		{"someone else's book", 2, book.GUID, "work", "#fff", ErrBookNotFound},
		{"ok", 1, book.GUID, "work", "#2da44e", nil},
	}
	for _, tt := range tests {
		tag, err := s.AddTag(ctx, tt.user, tt.guid, tt.tag, tt.color)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && (tag.Tag != "work" || tag.GUID != book.GUID) {
			t.Errorf("%s: tag = %+v", tt.name, tag)
		}
	}
}

func TestOverview(t *testing.T) {
	db := testdb.Open(t)
	s := newService(t, db)
	ctx := context.Background()
	seedDevice(t, db, "peer-1", "u1", time.Minute)
	seedDevice(t, db, "peer-2", "u2", 10*time.Minute)
	seedDevice(t, db, "peer-3", "u3", 0)

	// 先に別のアドレス帳を作っておき、既定のものが選ばれることを確かめる
	if err := db.Create(&models.Personal{GUID: "team-guid", CreateUserID: 1, PersonalName: "team", PersonalType: TypePublic, CreatedAt: epoch.Add(time.Hour)}).Error; err != nil {
		t.Fatal(err)
	}
	if err := s.RenameAlias(ctx, 1, "peer-1", "office"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateDevice(ctx, 1, "peer-2", DeviceUpdate{Tags: ptr("lab, linux")}); err != nil {
		t.Fatal(err)
	}
	book, _ := s.DefaultBook(ctx, 1)
	if _, err := s.AddTag(ctx, 1, book.GUID, "lab", "#abc"); err != nil {
		t.Fatal(err)
	}

	ov, err := s.Overview(ctx, 1, "admin", BookFilter{}, 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Books) != 2 {
		t.Fatalf("books = %+v", ov.Books)
	}
	if ov.Current == nil || ov.Current.GUID != book.GUID || !ov.Current.IsDefault || ov.Current.DeviceCount != 2 {
		t.Fatalf("current = %+v", ov.Current)
	}
	if len(ov.Tags) != 1 || ov.Tags[0].Tag != "lab" {
		t.Errorf("tags = %+v", ov.Tags)
	}
	got := map[string]BookDevice{}
	for _, d := range ov.Devices {
		got[d.PeerID] = d
	}
	if d := got["peer-1"]; d.Alias != "office" || !d.IsOnline || d.DeviceName != "host-peer-1" {
		t.Errorf("peer-1 = %+v", d)
	}
	if d := got["peer-2"]; d.IsOnline || fmt.Sprint(d.Tags) != "[lab linux]" || d.TagsStr != "lab, linux" {
		t.Errorf("peer-2 = %+v", d)
	}
	if _, ok := got["peer-3"]; ok {
		t.Error("peer-3 is not in the book")
	}

	ov, _ = s.Overview(ctx, 1, "admin", BookFilter{Type: TypePublic}, 5*time.Minute)
	if len(ov.Books) != 1 || ov.Current.GUID != "team-guid" || len(ov.Devices) != 0 {
		t.Errorf("public filter = %+v", ov)
	}

	ov, _ = s.Overview(ctx, 2, "bob", BookFilter{}, 5*time.Minute)
	if len(ov.Books) != 0 || ov.Current != nil || ov.Devices == nil {
		t.Errorf("empty overview = %+v", ov)
	}
}

func TestOverview_LegacyDisplayName(t *testing.T) {
	db := testdb.Open(t)
	s := newService(t, db)
	if err := db.Create(&models.Personal{GUID: "g", CreateUserID: 3, PersonalName: "carol_personal", PersonalType: TypePrivate, CreatedAt: epoch}).Error; err != nil {
		t.Fatal(err)
	}
	ov, err := s.Overview(context.Background(), 3, "carol", BookFilter{Query: "G"}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Books) != 1 || ov.Books[0].DisplayName != DefaultBookName || ov.Books[0].IsDefault {
		t.Errorf("books = %+v", ov.Books)
	}
}

func TestStorageUnavailable(t *testing.T) {
	s := newService(t, testdb.Broken(t))
	ctx := context.Background()
	if _, err := s.DefaultBook(ctx, 1); !errors.Is(err, database.ErrStorageUnavailable) {
		t.Errorf("DefaultBook err = %v", err)
	}
	if err := s.RenameAlias(ctx, 1, "peer-1", "x"); !errors.Is(err, database.ErrStorageUnavailable) {
		t.Errorf("RenameAlias err = %v", err)
	}
	if _, err := s.Overview(ctx, 1, "admin", BookFilter{}, time.Minute); !errors.Is(err, database.ErrStorageUnavailable) {
		t.Errorf("Overview err = %v", err)
	}
}
