package handlers

import (
	"net/http"
	"time"

	"deskserver/internal/liveness"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait       = 60 * time.Second // 読み取りデッドライン。Pong を受け取るたびに延長
	pingPeriod     = 10 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// statusSubscription はクライアントが送る購読メッセージです。送るたびに購読対象を置き換えます。
type statusSubscription struct {
	IDs []string `json:"ids"`
}

type statusPush struct {
	OK   bool                   `json:"ok"`
	Data map[string]statusEntry `json:"data"`
}

// NewUpgrader は WebSocket のアップグレーダーを返します。origins が空ならオリジンを制限しません。
func NewUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

// DeviceStatusStream は購読中のデバイスのオンライン状態を interval ごとに WebSocket で送ります。
// 購読を受け取ったときはすぐに1回送ります。
func DeviceStatusStream(oracle *liveness.Oracle, upgrader websocket.Upgrader, window, interval time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// WebSocket接続へのアップグレードと確立
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("Error upgrading WebSocket", zap.Error(err))
			return
		}
		defer conn.Close()

		subs := make(chan []string)
		done := make(chan struct{}) // 読み取り側の終了
		quit := make(chan struct{}) // 書き込み側の終了
		defer close(quit)
		go readSubscriptions(conn, subs, done, quit, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()

		ctx := c.Request.Context()
		var ids []string
		push := func() bool {
			status, err := oracle.BulkStatus(ctx, ids, window)
			if err != nil {
				logger.Error("オンライン状態の取得に失敗しました", zap.Error(err))
				return true
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(statusPush{OK: true, Data: statusData(status)}); err != nil {
				logger.Debug("WebSocket write failed", zap.Error(err))
				return false
			}
			return true
		}

		for {
			select {
			case <-done:
				return
			case next := <-subs:
				ids = next
				if !push() {
					return
				}
			case <-ticker.C:
				if len(ids) > 0 && !push() {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					logger.Debug("Error sending ping", zap.Error(err))
					return
				}
			}
		}
	}
}

// readSubscriptions は接続が切れるまで購読メッセージを読み続けます。
func readSubscriptions(conn *websocket.Conn, subs chan<- []string, done, quit chan struct{}, logger *zap.Logger) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg statusSubscription
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket closed", zap.Error(err))
			}
			return
		}
		ids := make([]string, 0, len(msg.IDs))
		for _, id := range msg.IDs {
			if id != "" {
				ids = append(ids, id)
			}
		}
		select {
		case subs <- ids:
		case <-quit:
			return
		}
	}
}
