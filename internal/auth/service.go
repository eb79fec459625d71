// Package auth は管理者のパスワードログインとセッション管理を提供する。
//
// 管理者アカウントは1つだけで、パスワードは環境変数から与える。
// ログインに成功するとHS256署名のJWTをHTTP Only Cookieに保存する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/ratelimit"
)

// SessionCookieName は管理者セッションを保存するクッキー名。
const SessionCookieName = "admin_session"

const (
	// DefaultSessionMaxAge は管理者セッションの既定の有効期間。
	DefaultSessionMaxAge = 7 * 24 * time.Hour
	// DefaultFailureDelay はログイン失敗時の最小応答時間。
	DefaultFailureDelay = 500 * time.Millisecond
)

// RateChecker はレート制限の判定インターフェース。
type RateChecker interface {
	Check(ctx context.Context, class ratelimit.Class, origin, token string) (ratelimit.Decision, error)
}

// ServiceConfig は管理者認証の設定。
type ServiceConfig struct {
	Password      string // 空の場合はログインできない
	Secret        []byte // セッショントークンの署名鍵
	SessionMaxAge time.Duration
	FailureDelay  time.Duration
	CookieDomain  string
	Secure        bool
}

// Service は管理者認証のサービス層。
type Service struct {
	config  ServiceConfig
	signer  *SessionSigner
	limiter RateChecker
	now     func() time.Time
}

// NewService はServiceを生成する。limiterがnilの場合はログイン試行を制限しない。
func NewService(config ServiceConfig, limiter RateChecker) *Service {
	if config.SessionMaxAge <= 0 {
		config.SessionMaxAge = DefaultSessionMaxAge
	}
	if config.FailureDelay < 0 {
		config.FailureDelay = 0
	}
	return &Service{
		config:  config,
		signer:  NewSessionSigner(config.Secret, config.SessionMaxAge),
		limiter: limiter,
		now:     time.Now,
	}
}

// Login はパスワードを検証し、成功した場合はセッションクッキーを返す。
// 試行回数は接続元IPのみで数える。
// パスワード不一致の応答は FailureDelay 以上の時間をかけて返す。
func (s *Service) Login(ctx context.Context, origin, password string) (*http.Cookie, error) {
	started := s.now()

	if s.limiter != nil {
		decision, err := s.limiter.Check(ctx, ratelimit.ClassAdminLogin, origin, "")
		if err != nil {
			return nil, fmt.Errorf("レート制限の判定に失敗しました: %w", err)
		}
		if !decision.Allowed {
			return nil, model.NewRateLimitedError(decision.RetryAfter)
		}
	}

	if !VerifyPassword(password, s.config.Password) {
		slog.Warn("admin login failed", slog.String("origin", origin))
		if err := s.waitFloor(ctx, started); err != nil {
			return nil, err
		}
		return nil, model.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.signer.Issue()
	if err != nil {
		return nil, err
	}

	slog.Info("admin logged in", slog.String("origin", origin))
	return s.cookie(token, expiresAt), nil
}

// LogoutCookie はセッションクッキーを削除するためのクッキーを返す。
func (s *Service) LogoutCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// VerifyRequest はリクエストのセッションクッキーを検証する。
func (s *Service) VerifyRequest(r *http.Request) error {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ErrInvalidSession
	}
	_, err = s.signer.Verify(c.Value)
	return err
}

func (s *Service) cookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.config.CookieDomain,
		Expires:  expiresAt,
		MaxAge:   int(s.config.SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// waitFloor は started から FailureDelay が経過するまで待つ。
func (s *Service) waitFloor(ctx context.Context, started time.Time) error {
	remaining := s.config.FailureDelay - s.now().Sub(started)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
