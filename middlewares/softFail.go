package middlewares

import (
	"fmt"

	"go.uber.org/zap"
)

// SoftFail は fn を実行し、エラーや panic をログに残して握りつぶします。成功したら true。
// 失敗してもリクエストの処理は続けたい副作用に使います。
func SoftFail(logger *zap.Logger, op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("ソフトフェイル: panic", zap.String("op", op), zap.String("panic", fmt.Sprint(r)))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		logger.Warn("ソフトフェイル", zap.String("op", op), zap.Error(err))
		return false
	}
	return true
}
