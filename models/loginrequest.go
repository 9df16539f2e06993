package models

// LoginRequest はクライアントとコンソールからのログインです。フォームと JSON のどちらでも受け付けます。
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	UUID     string `form:"uuid" json:"uuid"` // コンソールからのログインでは空

	// 以下はクライアントだけが送るログイン履歴用の情報
	ClientID   string          `form:"id" json:"id"`
	AutoLogin  bool            `form:"autoLogin" json:"autoLogin"`
	LoginType  string          `form:"type" json:"type"`
	DeviceInfo LoginDeviceInfo `json:"deviceInfo"`
}

// LoginDeviceInfo はクライアントが申告する端末の情報です。
type LoginDeviceInfo struct {
	OS   string `json:"os"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// LogoutRequest はクライアントからのログアウトフォームです。
type LogoutRequest struct {
	UUID string `form:"uuid" json:"uuid"`
}

// HeartbeatRequest はクライアントのハートビートフォームです。
type HeartbeatRequest struct {
	UUID       string `form:"uuid"`
	ClientID   string `form:"id"`
	ModifiedAt string `form:"modified_at"`
	Ver        string `form:"ver"`
}
