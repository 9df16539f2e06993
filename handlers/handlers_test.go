package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"deskserver/auth"
	"deskserver/internal/addressbook"
	"deskserver/internal/audit"
	"deskserver/internal/clock"
	"deskserver/internal/device"
	"deskserver/internal/liveness"
	"deskserver/internal/session"
	"deskserver/internal/testdb"
	"deskserver/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	router *gin.Engine
	db     *gorm.DB
	clock  *clock.FakeClock
	tokens *auth.TokenStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.Open(t)
	clk := clock.Fake(epoch)
	logger := zap.NewNop()
	if _, err := auth.EnsureAdmin(context.Background(), db, "admin", "admin", bcrypt.MinCost, logger); err != nil {
		t.Fatal(err)
	}
	oracle := liveness.New(db, clk, 0)
	tokens := auth.NewTokenStore(db, clk)
	devices := device.NewRegistry(db, clk, oracle)
	router := NewRouter(RouterConfig{
		Users:          auth.NewUsers(db, clk),
		Tokens:         tokens,
		Sessions:       session.NewManager(session.NewDBStore(db), clk, 14*24*time.Hour, false, logger),
		Devices:        devices,
		Oracle:         oracle,
		Books:          addressbook.New(db, clk, devices, oracle),
		Audit:          audit.NewRecorder(db, clk),
		TokenTTL:       time.Hour,
		ListingWindow:  5 * time.Minute,
		PollingWindow:  time.Minute,
		StreamInterval: 50 * time.Millisecond,
		Logger:         logger,
	})
	return &env{router: router, db: db, clock: clk, tokens: tokens}
}

type request struct {
	method  string
	path    string
	form    url.Values
	json    string
	cookie  *http.Cookie
	headers map[string]string
}

func (e *env) do(t *testing.T, r request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	switch {
	case r.form != nil:
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(r.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case r.json != "":
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(r.json))
		req.Header.Set("Content-Type", "application/json")
	default:
		req = httptest.NewRequest(r.method, r.path, nil)
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.CookieName && ck.Value != "" {
			return ck
		}
	}
	return nil
}

// webLogin はコンソールにログインして sessionid クッキーを返します。
func (e *env) webLogin(t *testing.T) *http.Cookie {
	t.Helper()
	w, body := e.do(t, request{method: http.MethodPost, path: "/web/login", form: url.Values{"username": {"admin"}, "password": {"admin"}}})
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("web login: %d %v", w.Code, body)
	}
	ck := sessionCookie(w)
	if ck == nil {
		t.Fatal("no session cookie")
	}
	return ck
}

func (e *env) heartbeat(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	w, _ := e.do(t, request{method: http.MethodPost, path: "/api/heartbeat", form: form})
	return w
}

func TestHeartbeat(t *testing.T) {
	e := newEnv(t)

	w, body := e.do(t, request{method: http.MethodPost, path: "/api/heartbeat", form: url.Values{"uuid": {"u1"}, "id": {"peer-1"}, "ver": {"1.4.2"}}})
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("heartbeat: %d %v", w.Code, body)
	}

	w = e.heartbeat(t, url.Values{"uuid": {"u2"}, "id": {"peer-2"}, "modified_at": {"last tuesday"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed modified_at: code %d, want 400", w.Code)
	}
	var n int64
	e.db.Model(&models.HeartBeat{}).Where("uuid = ?", "u2").Count(&n)
	if n != 0 {
		t.Error("malformed heartbeat was stored")
	}
}

func TestSystemInfo(t *testing.T) {
	e := newEnv(t)
	w, body := e.do(t, request{method: http.MethodPost, path: "/api/sysinfo",
		json: `{"uuid":"u1","id":"peer-1","cpu":"Intel","hostname":"alpha","memory":"16GB","os":"windows","username":"bob","version":"1.4.2"}`})
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("sysinfo: %d %v", w.Code, body)
	}
	var info models.SystemInfo
	e.db.Where("uuid = ?", "u1").First(&info)
	if info.ClientID != "peer-1" || info.Hostname != "alpha" || info.CPU != "Intel" {
		t.Errorf("stored = %+v", info)
	}

	w, _ = e.do(t, request{method: http.MethodPost, path: "/api/sysinfo", json: `{"uuid":`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json: code %d", w.Code)
	}
}

func TestClientLoginTokenLogout(t *testing.T) {
	e := newEnv(t)

	w, body := e.do(t, request{method: http.MethodPost, path: "/api/login", form: url.Values{"username": {"admin"}, "password": {"wrong"}, "uuid": {"dev-1"}}})
	if w.Code != http.StatusOK || body["error"] == nil || body["access_token"] != nil {
		t.Fatalf("bad login: %d %v", w.Code, body)
	}

	w, body = e.do(t, request{method: http.MethodPost, path: "/api/login", form: url.Values{"username": {"admin"}, "password": {"admin"}, "uuid": {"dev-1"}}})
	if w.Code != http.StatusOK || body["type"] != "access_token" {
		t.Fatalf("login: %d %v", w.Code, body)
	}
	token, _ := body["access_token"].(string)
	if len(token) != 36 {
		t.Fatalf("access_token = %q", token)
	}
	if user, _ := body["user"].(map[string]any); user["name"] != "admin" {
		t.Errorf("user = %v", body["user"])
	}

	bearer := map[string]string{"Authorization": "Bearer " + token}
	w, body = e.do(t, request{method: http.MethodGet, path: "/web/home", headers: bearer})
	if w.Code != http.StatusOK {
		t.Fatalf("home with bearer: %d %v", w.Code, body)
	}

	// 利用でスライドし、放置で切れる
	e.clock.Advance(50 * time.Minute)
	w, _ = e.do(t, request{method: http.MethodGet, path: "/web/home", headers: bearer})
	if w.Code != http.StatusOK {
		t.Fatalf("home after 50m: %d", w.Code)
	}
	e.clock.Advance(50 * time.Minute)
	w, _ = e.do(t, request{method: http.MethodGet, path: "/web/home", headers: bearer})
	if w.Code != http.StatusOK {
		t.Fatalf("home after renewed 50m: %d", w.Code)
	}
	e.clock.Advance(61 * time.Minute)
	w, _ = e.do(t, request{method: http.MethodGet, path: "/web/home", headers: bearer})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("home after idle 61m: %d, want 401", w.Code)
	}

	w, body = e.do(t, request{method: http.MethodPost, path: "/api/logout", form: url.Values{"uuid": {"dev-1"}}})
	if w.Code != http.StatusOK || body["code"] != float64(1) {
		t.Fatalf("logout: %d %v", w.Code, body)
	}
	if tok, _ := e.tokens.Lookup(context.Background(), token); tok != nil {
		t.Error("token survived logout")
	}
}

func TestConsoleRequiresSession(t *testing.T) {
	e := newEnv(t)

	w, body := e.do(t, request{method: http.MethodGet, path: "/web/home"})
	if w.Code != http.StatusForbidden || body["error"] != "missing sessionid" {
		t.Errorf("no cookie: %d %v", w.Code, body)
	}
	w, body = e.do(t, request{method: http.MethodGet, path: "/web/home", cookie: &http.Cookie{Name: session.CookieName, Value: "forged"}})
	if w.Code != http.StatusForbidden || body["error"] != "unknown session" {
		t.Errorf("forged cookie: %d %v", w.Code, body)
	}

	ck := e.webLogin(t)
	w, body = e.do(t, request{method: http.MethodGet, path: "/web/home", cookie: ck})
	if w.Code != http.StatusOK {
		t.Fatalf("home: %d %v", w.Code, body)
	}
	data := body["data"].(map[string]any)
	if data["username"] != "admin" || data["user_count"] != float64(1) {
		t.Errorf("home data = %v", data)
	}

	e.clock.Advance(15 * 24 * time.Hour)
	w, body = e.do(t, request{method: http.MethodGet, path: "/web/home", cookie: ck})
	if w.Code != http.StatusForbidden || body["error"] != "session expired" {
		t.Errorf("expired: %d %v", w.Code, body)
	}

	ck = e.webLogin(t)
	e.do(t, request{method: http.MethodPost, path: "/web/logout", cookie: ck})
	w, _ = e.do(t, request{method: http.MethodGet, path: "/web/home", cookie: ck})
	if w.Code != http.StatusForbidden {
		t.Errorf("after logout: %d", w.Code)
	}
}

func TestWebLoginRejectsBadPassword(t *testing.T) {
	e := newEnv(t)
	w, body := e.do(t, request{method: http.MethodPost, path: "/web/login", form: url.Values{"username": {"admin"}, "password": {"x"}}})
	if w.Code != http.StatusUnauthorized || body["ok"] != false || sessionCookie(w) != nil {
		t.Errorf("got %d %v", w.Code, body)
	}
	if msg, _ := body["err_msg"].(string); msg == "" || body["error"] != nil {
		t.Errorf("console errors use err_msg: %v", body)
	}
}

func TestDeviceStatuses(t *testing.T) {
	e := newEnv(t)
	ck := e.webLogin(t)
	e.heartbeat(t, url.Values{"uuid": {"u1"}, "id": {"dev-1"}})
	e.clock.Advance(30 * time.Second)

	noRenew := map[string]string{session.NoRenewHeader: "1"}
	w, body := e.do(t, request{method: http.MethodGet, path: "/web/device/statuses?ids=dev-1,dev-2,,dev-1", cookie: ck, headers: noRenew})
	if w.Code != http.StatusOK {
		t.Fatalf("statuses: %d %v", w.Code, body)
	}
	data := body["data"].(map[string]any)
	if len(data) != 2 {
		t.Fatalf("data = %v", data)
	}
	if data["dev-1"].(map[string]any)["is_online"] != true || data["dev-2"].(map[string]any)["is_online"] != false {
		t.Errorf("data = %v", data)
	}
	if sessionCookie(w) != nil {
		t.Error("polling with X-Session-No-Renew must not refresh the session cookie")
	}

	e.clock.Advance(time.Minute)
	_, body = e.do(t, request{method: http.MethodGet, path: "/web/device/statuses?ids=dev-1", cookie: ck})
	if body["data"].(map[string]any)["dev-1"].(map[string]any)["is_online"] != false {
		t.Errorf("dev-1 should be offline after 90s: %v", body)
	}

	_, body = e.do(t, request{method: http.MethodGet, path: "/web/device/statuses", cookie: ck})
	if d := body["data"].(map[string]any); len(d) != 0 {
		t.Errorf("empty ids: %v", d)
	}
}

func (e *env) sysinfo(t *testing.T, uuid, peer, host string) {
	t.Helper()
	body := `{"uuid":"` + uuid + `","id":"` + peer + `","hostname":"` + host + `","os":"linux","username":"bob"}`
	if w, _ := e.do(t, request{method: http.MethodPost, path: "/api/sysinfo", json: body}); w.Code != http.StatusOK {
		t.Fatalf("sysinfo %s: %d", peer, w.Code)
	}
}

func TestDevicesAndDetail(t *testing.T) {
	e := newEnv(t)
	ck := e.webLogin(t)
	e.sysinfo(t, "u1", "peer-1", "alpha")
	e.sysinfo(t, "u2", "peer-2", "beta")
	e.heartbeat(t, url.Values{"uuid": {"u1"}, "id": {"peer-1"}})

	w, body := e.do(t, request{method: http.MethodGet, path: "/web/devices?status=online", cookie: ck})
	if w.Code != http.StatusOK {
		t.Fatalf("devices: %d %v", w.Code, body)
	}
	page := body["data"].(map[string]any)
	devices := page["devices"].([]any)
	if page["total"] != float64(1) || len(devices) != 1 || devices[0].(map[string]any)["id"] != "peer-1" {
		t.Errorf("online devices = %v", page)
	}

	w, body = e.do(t, request{method: http.MethodPost, path: "/web/device/update", cookie: ck,
		form: url.Values{"peer_id": {"peer-2"}, "alias": {"beta box"}, "tags": {"lab, lab ,linux"}}})
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("update: %d %v", w.Code, body)
	}

	w, body = e.do(t, request{method: http.MethodGet, path: "/web/device/detail?peer_id=peer-2", cookie: ck})
	if w.Code != http.StatusOK {
		t.Fatalf("detail: %d %v", w.Code, body)
	}
	detail := body["data"].(map[string]any)
	want := map[string]any{
		"peer_id":   "peer-2",
		"username":  "bob",
		"hostname":  "beta",
		"alias":     "beta box",
		"platform":  "linux",
		"tags":      []any{"lab", "linux"},
		"is_online": false,
	}
	if len(detail) != len(want) {
		t.Errorf("detail keys = %v, want exactly %v", detail, want)
	}
	for k, v := range want {
		if fmt.Sprint(detail[k]) != fmt.Sprint(v) {
			t.Errorf("detail[%s] = %v, want %v", k, detail[k], v)
		}
	}

	_, body = e.do(t, request{method: http.MethodGet, path: "/web/devices?q=peer-2", cookie: ck})
	row := body["data"].(map[string]any)["devices"].([]any)[0].(map[string]any)
	if row["alias"] != "beta box" || row["tags_str"] != "lab, linux" || fmt.Sprint(row["tags"]) != "[lab linux]" {
		t.Errorf("list row = %v", row)
	}

	w, body = e.do(t, request{method: http.MethodGet, path: "/web/device/detail?peer_id=nope", cookie: ck})
	if w.Code != http.StatusNotFound || body["ok"] != false || body["err_msg"] != "device not found" {
		t.Errorf("missing device: %d %v", w.Code, body)
	}
	w, body = e.do(t, request{method: http.MethodGet, path: "/web/device/detail", cookie: ck})
	if w.Code != http.StatusBadRequest || body["err_msg"] == nil {
		t.Errorf("no peer_id: %d %v", w.Code, body)
	}
}

func TestAddressBook(t *testing.T) {
	e := newEnv(t)
	ck := e.webLogin(t)
	e.sysinfo(t, "u1", "peer-1", "alpha")
	e.heartbeat(t, url.Values{"uuid": {"u1"}, "id": {"peer-1"}})

	post := func(path string, form url.Values) (*httptest.ResponseRecorder, map[string]any) {
		return e.do(t, request{method: http.MethodPost, path: path, form: form, cookie: ck})
	}

	tests := []struct {
		name string
		form url.Values
		code int
	}{
		{"missing alias", url.Values{"peer_id": {"peer-1"}}, http.StatusBadRequest},
		{"unknown device", url.Values{"peer_id": {"peer-9"}, "alias": {"x"}}, http.StatusNotFound},
		{"ok", url.Values{"peer_id": {"peer-1"}, "alias": {"office"}}, http.StatusOK},
	}
	for _, tt := range tests {
		w, body := post("/web/device/alias", tt.form)
		if w.Code != tt.code {
			t.Errorf("alias %s: %d %v, want %d", tt.name, w.Code, body, tt.code)
		}
		if tt.code != http.StatusOK && body["err_msg"] == nil {
			t.Errorf("alias %s: no err_msg in %v", tt.name, body)
		}
	}

	w, body := e.do(t, request{method: http.MethodGet, path: "/web/personals", cookie: ck})
	if w.Code != http.StatusOK {
		t.Fatalf("personals: %d %v", w.Code, body)
	}
	data := body["data"].(map[string]any)
	current := data["default_personal"].(map[string]any)
	guid, _ := current["guid"].(string)
	if guid == "" || current["is_default"] != true || current["device_count"] != float64(1) {
		t.Fatalf("default book = %v", current)
	}
	devices := data["devices"].([]any)
	if len(devices) != 1 {
		t.Fatalf("book devices = %v", devices)
	}
	if d := devices[0].(map[string]any); d["peer_id"] != "peer-1" || d["alias"] != "office" || d["is_online"] != true {
		t.Errorf("book device = %v", d)
	}

	w, body = post("/web/tag", url.Values{"tag": {"lab"}, "color": {"#2da44e"}, "guid": {guid}})
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("add tag: %d %v", w.Code, body)
	}
	w, body = post("/web/tag", url.Values{"tag": {"lab"}, "color": {""}, "guid": {guid}})
	if w.Code != http.StatusBadRequest || body["err_msg"] == nil {
		t.Errorf("tag without color: %d %v", w.Code, body)
	}
	w, _ = post("/web/tag", url.Values{"tag": {"lab"}, "color": {"#fff"}, "guid": {"not-mine"}})
	if w.Code != http.StatusNotFound {
		t.Errorf("tag on unknown book: %d", w.Code)
	}

	_, body = e.do(t, request{method: http.MethodGet, path: "/web/personals", cookie: ck})
	if tags := body["data"].(map[string]any)["tags"].([]any); len(tags) != 1 {
		t.Errorf("book tags = %v", tags)
	}

	// ログインしていなければ触れない
	w, _ = e.do(t, request{method: http.MethodPost, path: "/web/device/alias", form: url.Values{"peer_id": {"peer-1"}, "alias": {"x"}}})
	if w.Code != http.StatusForbidden {
		t.Errorf("anonymous alias: %d", w.Code)
	}
}

func TestAuditEndpoints(t *testing.T) {
	e := newEnv(t)

	w, _ := e.do(t, request{method: http.MethodPost, path: "/api/audit/conn",
		json: `{"action":"new","conn_id":42,"ip":"10.0.0.5","uuid":"u1","session_id":9007199254740993,"peer":["peer-9","ADMIN"]}`})
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Fatalf("audit conn: %d %q", w.Code, w.Body.String())
	}
	w, _ = e.do(t, request{method: http.MethodPost, path: "/api/audit/conn", json: `{"action":"close","conn_id":42}`})
	if w.Code != http.StatusOK {
		t.Fatalf("audit close: %d", w.Code)
	}
	var conn models.AuditConn
	if err := e.db.Where("conn_id = ?", 42).First(&conn).Error; err != nil {
		t.Fatal(err)
	}
	if conn.Username != "admin" || conn.ControllerPeerID != "peer-9" || conn.SessionID != "9007199254740993" || conn.ClosedAt == nil {
		t.Errorf("audit conn row = %+v", conn)
	}

	w, _ = e.do(t, request{method: http.MethodPost, path: "/api/audit/file",
		json: `{"id":"peer-2","info":"{\"name\":\"Admin\",\"ip\":\"10.0.0.6\",\"files\":[[\"a.txt\",12]],\"num\":1}","is_file":true,"path":"/tmp/a.txt","peer_id":"peer-9","type":1,"uuid":"u2"}`})
	if w.Code != http.StatusOK {
		t.Fatalf("audit file: %d %q", w.Code, w.Body.String())
	}
	var file models.AuditFile
	if err := e.db.First(&file).Error; err != nil {
		t.Fatal(err)
	}
	if file.UserID == nil || file.TargetIP != "10.0.0.6" || file.FileNum != 1 || file.OperationType != 1 || file.FileInfo != `[["a.txt",12]]` {
		t.Errorf("audit file row = %+v", file)
	}

	for name, body := range map[string]string{
		"no conn_id":  `{"action":"new"}`,
		"broken json":  `{"conn_id":`,
	} {
		if w, _ := e.do(t, request{method: http.MethodPost, path: "/api/audit/conn", json: body}); w.Code != http.StatusBadRequest {
			t.Errorf("conn %s: %d", name, w.Code)
		}
	}
	if w, _ := e.do(t, request{method: http.MethodPost, path: "/api/audit/file", json: `{"info":"not json"}`}); w.Code != http.StatusBadRequest {
		t.Errorf("file with bad info: %d", w.Code)
	}
}

func TestClientLoginWritesLoginLog(t *testing.T) {
	e := newEnv(t)
	w, body := e.do(t, request{method: http.MethodPost, path: "/api/login",
		json: `{"username":"admin","password":"admin","id":"peer-1","uuid":"dev-1","autoLogin":true,"type":"account","deviceInfo":{"os":"windows","type":"client","name":"alpha"}}`})
	if w.Code != http.StatusOK || body["type"] != "access_token" {
		t.Fatalf("login: %d %v", w.Code, body)
	}
	var logs []models.LoginLog
	e.db.Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("login logs = %+v", logs)
	}
	l := logs[0]
	if l.Username != "admin" || l.ClientID != "peer-1" || l.UUID != "dev-1" || !l.AutoLogin || l.LoginType != "account" || l.OS != "windows" || l.DeviceName != "alpha" {
		t.Errorf("login log = %+v", l)
	}

	// 失敗したログインは記録しない
	e.do(t, request{method: http.MethodPost, path: "/api/login", form: url.Values{"username": {"admin"}, "password": {"nope"}}})
	var n int64
	e.db.Model(&models.LoginLog{}).Count(&n)
	if n != 1 {
		t.Errorf("login logs after failed login = %d, want 1", n)
	}
}

func TestUsers(t *testing.T) {
	e := newEnv(t)
	ck := e.webLogin(t)
	w, body := e.do(t, request{method: http.MethodGet, path: "/web/users?q=adm", cookie: ck})
	if w.Code != http.StatusOK {
		t.Fatalf("users: %d %v", w.Code, body)
	}
	users := body["data"].(map[string]any)["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("users = %v", users)
	}
	u := users[0].(map[string]any)
	if u["username"] != "admin" {
		t.Errorf("user = %v", u)
	}
	if _, leaked := u["Password"]; leaked {
		t.Error("password hash in response")
	}
}

func TestDeviceStatusStream(t *testing.T) {
	e := newEnv(t)
	ck := e.webLogin(t)
	e.heartbeat(t, url.Values{"uuid": {"u1"}, "id": {"dev-1"}})

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/web/device/statuses/ws"
	header := http.Header{"Cookie": {ck.Name + "=" + ck.Value}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v (resp %v)", err, resp)
	}
	defer conn.Close()

	if err := conn.WriteJSON(statusSubscription{IDs: []string{"dev-1", "dev-2"}}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2; i++ { // 購読直後の送信と定期送信
		var push statusPush
		if err := conn.ReadJSON(&push); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if !push.OK || !push.Data["dev-1"].IsOnline || push.Data["dev-2"].IsOnline || len(push.Data) != 2 {
			t.Errorf("push %d = %+v", i, push)
		}
	}
}

func TestDeviceStatusStream_RequiresSession(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/web/device/statuses/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial without session succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %v", resp)
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, b,,c ,")
	want := []string{"a", "b", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitIDs = %q", got)
	}
}
