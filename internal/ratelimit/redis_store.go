package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisでカウンタを保持するStore。
// 複数のプロセスで同じ上限を共有する場合に使う。
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// RedisStoreOption はRedisStoreの設定を変更する。
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix はRedis上のキーの接頭辞を変更する。
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedisStore は新しいRedisStoreを生成する。
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "meyasu:ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment はINCRとPTTLをトランザクションで実行する。
// 有効期限が未設定のキー（ウィンドウの最初のリクエスト）にのみウィンドウ長の有効期限を設定する。
func (s *RedisStore) Increment(ctx context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	k := s.prefix + ":" + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", k, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := s.rdb.PExpire(ctx, k, d).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis pexpire %s: %w", k, err)
		}
		ttl = d
	}

	return incr.Val(), ttl, nil
}

// Ping はRedisへの疎通を確認する。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
