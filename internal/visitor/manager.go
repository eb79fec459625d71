// Package visitor はアカウントを持たない訪問者の匿名IDを発行・解決する。
//
// 匿名IDはHTTP Only Cookieに保存した乱数トークンで、サーバー側の訪問者レコードと対応する。
// レコードは作成から保持期間（既定30日）で失効し、アクセスがあっても延長しない。
// 失効後の訪問者は新規の訪問者と区別されない。
package visitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/meyasu/internal/model"
)

// CookieName は匿名トークンを保存するクッキー名。
const CookieName = "anonymous_user_id"

// DefaultRetention は訪問者レコードの既定の保持期間。
const DefaultRetention = 30 * 24 * time.Hour

// Repository は訪問者レコードの永続化に必要なインターフェース。
// repository.VisitorRepositoryの部分集合として定義する。
type Repository interface {
	// FindActiveByToken は now の時点で失効していないレコードを返す。見つからない場合はnilを返す。
	FindActiveByToken(ctx context.Context, token string, now time.Time) (*model.Visitor, error)
	Create(ctx context.Context, v *model.Visitor) error
	TouchLastSeen(ctx context.Context, id int64, seenAt time.Time) error
}

// Config は匿名IDのクッキー設定を保持する。
type Config struct {
	Retention    time.Duration
	CookieDomain string
	Secure       bool     // BASE_URLがhttpsの場合にtrue
	EmbedOrigins []string // SameSite=None で埋め込みを許可するオリジン
}

// Manager は匿名IDの解決と発行を行う。
type Manager struct {
	repo   Repository
	config Config
	embeds map[string]bool
	now    func() time.Time

	onCreate func()
}

// ManagerOption はManagerの設定を変更する。
type ManagerOption func(*Manager)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithCreateHook はレコード作成時に呼び出す関数を設定する。メトリクス記録用。
func WithCreateHook(fn func()) ManagerOption {
	return func(m *Manager) { m.onCreate = fn }
}

// NewManager は新しいManagerを生成する。
func NewManager(repo Repository, config Config, opts ...ManagerOption) *Manager {
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	embeds := make(map[string]bool, len(config.EmbedOrigins))
	for _, o := range config.EmbedOrigins {
		embeds[o] = true
	}

	m := &Manager{
		repo:   repo,
		config: config,
		embeds: embeds,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TokenFromRequest はリクエストのクッキーから匿名トークンを取り出す。
// 存在しない、または形式が不正な場合は空文字列を返す。
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || !validToken(c.Value) {
		return ""
	}
	return c.Value
}

// Resolve はクッキーの匿名トークンに対応する訪問者IDを返す。
// 何も作成・更新しない。トークンが無い、未登録、失効済みの場合は false を返す。
// ストレージ障害は訪問者なしとして扱わず、エラーとして返す。
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (int64, bool, error) {
	v, err := m.lookup(ctx, r)
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, nil
	}
	return v.ID, true, nil
}

// ResolveOrCreate はクッキーの匿名トークンに対応する訪問者IDを返す。
// 有効なレコードがあれば最終アクセス時刻を更新する。
// 無い場合は新しいトークンとレコードを作成し、レスポンスにクッキーを設定する。
// 1回の呼び出しで作成するレコードとクッキーはそれぞれ高々1つ。
func (m *Manager) ResolveOrCreate(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, error) {
	v, err := m.lookup(ctx, r)
	if err != nil {
		return 0, err
	}

	now := m.now()
	if v != nil {
		if err := m.repo.TouchLastSeen(ctx, v.ID, now); err != nil {
			return 0, fmt.Errorf("%w: touch visitor: %w", model.ErrStorageUnavailable, err)
		}
		return v.ID, nil
	}

	token, err := generateToken()
	if err != nil {
		return 0, err
	}

	created := &model.Visitor{
		Token:      token,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.config.Retention),
	}
	if err := m.repo.Create(ctx, created); err != nil {
		return 0, fmt.Errorf("%w: create visitor: %w", model.ErrStorageUnavailable, err)
	}

	http.SetCookie(w, m.cookie(r, token, created.ExpiresAt))
	if m.onCreate != nil {
		m.onCreate()
	}

	slog.Debug("visitor created", slog.Int64("visitor_id", created.ID))
	return created.ID, nil
}

// lookup はクッキーのトークンから有効な訪問者レコードを検索する。
func (m *Manager) lookup(ctx context.Context, r *http.Request) (*model.Visitor, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}

	v, err := m.repo.FindActiveByToken(ctx, token, m.now())
	if err != nil {
		return nil, fmt.Errorf("%w: find visitor: %w", model.ErrStorageUnavailable, err)
	}
	if v == nil || v.IsExpired(m.now()) {
		return nil, nil
	}
	return v, nil
}

// cookie は匿名トークンのクッキーを生成する。
// 許可された埋め込み元オリジンからのリクエストでは SameSite=None; Secure を設定する。
func (m *Manager) cookie(r *http.Request, token string, expiresAt time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.config.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   int(m.config.Retention.Seconds()),
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	if origin := r.Header.Get("Origin"); origin != "" && m.embeds[origin] {
		c.SameSite = http.SameSiteNoneMode
		c.Secure = true
	}
	return c
}
