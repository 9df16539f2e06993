package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deskserver/database"
	"deskserver/internal/clock"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "session:"

// RedisStore はセッションを JSON として Redis に保存します。
// キーの TTL は有効期限 + ExpiredRetention で、期限切れ後もしばらく判別できます。
type RedisStore struct {
	rdb   *redis.Client
	clock clock.Clock
}

func NewRedisStore(rdb *redis.Client, clk clock.Clock) *RedisStore {
	return &RedisStore{rdb: rdb, clock: clk}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Data, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, database.StorageError("session get", err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		// 壊れた値は存在しないものとして扱う
		return nil, fmt.Errorf("decode session: %w", ErrNotFound)
	}
	data.Key = key
	return &data, nil
}

func (s *RedisStore) Save(ctx context.Context, data *Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ttl := data.ExpireAt.Sub(s.clock.Now()) + ExpiredRetention
	if ttl <= 0 {
		return s.Delete(ctx, data.Key)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+data.Key, raw, ttl).Err(); err != nil {
		return database.StorageError("session save", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return database.StorageError("session delete", err)
	}
	return nil
}

// DeleteExpired は何もしません。Redis のキーは TTL で消えます。
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
