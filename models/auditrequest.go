package models

import "encoding/json"

// AuditConnRequest はクライアントが送る接続監査の JSON です。
// peer は [ピアID, ..., ユーザー名] の配列で、session_id は数値で届くことがあります。
type AuditConnRequest struct {
	Action    string          `json:"action"`
	ConnID    int64           `json:"conn_id"`
	IP        string          `json:"ip"`
	UUID      string          `json:"uuid"`
	SessionID json.RawMessage `json:"session_id"`
	Type      int             `json:"type"`
	Peer      []any           `json:"peer"`
}

// AuditFileRequest はクライアントが送るファイル転送監査の JSON です。Info は JSON 文字列です。
type AuditFileRequest struct {
	ID     string `json:"id"` // 転送先のピアID
	Info   string `json:"info"`
	IsFile bool   `json:"is_file"`
	Path   string `json:"path"`
	PeerID string `json:"peer_id"` // 転送元のピアID
	Type   int    `json:"type"`    // 0:ダウンロード 1:アップロード
	UUID   string `json:"uuid"`
}

// AuditFileInfo は AuditFileRequest.Info の中身です。
type AuditFileInfo struct {
	Name  string          `json:"name"`
	IP    string          `json:"ip"`
	Files json.RawMessage `json:"files"`
	Num   int             `json:"num"`
}
