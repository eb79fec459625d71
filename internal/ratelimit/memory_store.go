package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// window は1つのキーに対する固定ウィンドウのカウンタ。
type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore はプロセス内のmapでカウンタを保持するStore。
// プロセスを再起動すると全てのカウンタはリセットされる。
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// MemoryStoreOption はMemoryStoreの設定を変更する。
type MemoryStoreOption func(*MemoryStore)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore は新しいMemoryStoreを生成する。
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment はキーのカウンタを1増やす。
// ウィンドウが終了していれば新しいウィンドウを開始する。
// 増加と読み取りは同一のロック内で行う。
func (s *MemoryStore) Increment(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		s.windows[key] = w
	}
	w.count++

	return w.count, w.resetAt.Sub(now), nil
}

// Len は現在保持しているウィンドウ数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Cleanup は終了したウィンドウを削除し、削除した件数を返す。
func (s *MemoryStore) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// StartJanitor はctxがキャンセルされるまで、interval毎に終了したウィンドウを削除する。
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					slog.Debug("rate limit windows expired", slog.Int("removed", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
