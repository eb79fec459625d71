package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/meyasu/internal/model"
	"golang.org/x/time/rate"
)

// Store はウィンドウ内の回数を数えるカウンタの保持先。
// Increment はキーのカウンタを1増やした後の値と、ウィンドウ終了までの残り時間を返す。
// 同じキーに対する並行呼び出しでも、増加と読み取りは不可分でなければならない。
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Decision はレート制限の判定結果。
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 拒否時のみ設定される
}

// Limiter は操作種別ごとのPolicyに従って複合キー単位でリクエスト数を制限する。
type Limiter struct {
	store    Store
	policies Policies

	// 拒否ログは大量に出力されうるため間引く
	denyLog *rate.Sometimes
}

// NewLimiter は新しいLimiterを生成する。
func NewLimiter(store Store, policies Policies) *Limiter {
	return &Limiter{
		store:    store,
		policies: policies,
		denyLog:  &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Policy は操作種別に対応するPolicyを返す。
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	return p, ok
}

// CompositeKey は接続元と匿名トークンから複合キーを生成する。
// トークンが無い場合は空文字列として扱う。
func CompositeKey(origin, token string) string {
	return origin + ":" + token
}

// Check は操作種別と複合キーに対するリクエストを1回数え、許可するかどうかを判定する。
// 拒否の判定はエラーではなく Decision.Allowed で返す。
// カウンタの保持先に到達できない場合は model.ErrStorageUnavailable をラップしたエラーを返す。
func (l *Limiter) Check(ctx context.Context, class Class, origin, token string) (Decision, error) {
	policy, ok := l.policies[class]
	if !ok {
		return Decision{}, fmt.Errorf("ratelimit: unknown class %q", class)
	}

	key := string(class) + ":" + CompositeKey(origin, token)
	count, ttl, err := l.store.Increment(ctx, key, policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: rate limit store: %w", model.ErrStorageUnavailable, err)
	}

	limit := int64(policy.Limit)
	if count <= limit {
		return Decision{
			Allowed:   true,
			Limit:     policy.Limit,
			Remaining: int(limit - count),
		}, nil
	}

	if ttl <= 0 {
		ttl = policy.Window
	}

	slog.Debug("rate limit exceeded",
		slog.String("class", string(class)),
		slog.Int64("count", count),
	)
	l.denyLog.Do(func() {
		slog.Info("rate limit denials observed",
			slog.String("class", string(class)),
			slog.Int("limit", policy.Limit),
			slog.Duration("window", policy.Window),
		)
	})

	return Decision{
		Allowed:    false,
		Limit:      policy.Limit,
		Remaining:  0,
		RetryAfter: ttl,
	}, nil
}
