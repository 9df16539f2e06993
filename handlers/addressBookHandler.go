package handlers

import (
	"errors"
	"net/http"
	"time"

	"deskserver/internal/addressbook"
	"deskserver/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bookFailure はアドレス帳サービスのエラーをレスポンスにします。
func bookFailure(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, addressbook.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, addressbook.ErrDeviceNotFound), errors.Is(err, addressbook.ErrBookNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		internalError(c, logger, "アドレス帳の更新に失敗しました", err)
	}
}

// RenameAlias は既定アドレス帳での別名を設定します（フォーム: peer_id, alias）。
func RenameAlias(books *addressbook.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := books.RenameAlias(c.Request.Context(), currentUserID(c), c.PostForm("peer_id"), c.PostForm("alias")); err != nil {
			bookFailure(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// UpdateDevice は別名とタグをまとめて更新します（フォーム: peer_id, alias, tags）。
// 送られてこなかった項目はそのまま、空文字は削除です。
func UpdateDevice(books *addressbook.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var u addressbook.DeviceUpdate
		if v, ok := c.GetPostForm("alias"); ok {
			u.Alias = &v
		}
		if v, ok := c.GetPostForm("tags"); ok {
			u.Tags = &v
		}
		if err := books.UpdateDevice(c.Request.Context(), currentUserID(c), c.PostForm("peer_id"), u); err != nil {
			bookFailure(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// AddTag はアドレス帳にタグを追加します（フォーム: tag, color, guid）。
func AddTag(books *addressbook.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag, err := books.AddTag(c.Request.Context(), currentUserID(c), c.PostForm("guid"), c.PostForm("tag"), c.PostForm("color"))
		if err != nil {
			bookFailure(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": tag})
	}
}

// Personals はアドレス帳の一覧と既定のアドレス帳の中身を返します（q, type）。
func Personals(books *addressbook.Service, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := middlewares.CurrentPrincipal(c.Request.Context())
		if p == nil {
			p = &middlewares.Principal{}
		}
		ov, err := books.Overview(c.Request.Context(), p.UserID, p.Username, addressbook.BookFilter{
			Query: c.Query("q"),
			Type:  c.Query("type"),
		}, window)
		if err != nil {
			internalError(c, logger, "アドレス帳の取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": ov})
	}
}
