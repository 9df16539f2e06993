package database

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable はデータベースやRedisへのアクセスに失敗したことを表します。
// 「見つからない」「期限切れ」はエラーではなく、呼び出し側の戻り値で表現します。
var ErrStorageUnavailable = errors.New("storage unavailable")

// StorageError は err を ErrStorageUnavailable としてラップします。
// errors.Is は ErrStorageUnavailable と元のエラーの両方に一致します。
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
