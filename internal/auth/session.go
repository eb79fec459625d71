package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer  = "meyasu"
	adminSubject = "admin"
)

// ErrInvalidSession はセッショントークンが無効であることを示す。
var ErrInvalidSession = errors.New("invalid admin session")

// AdminClaims は管理者セッションのJWTクレーム。
// 管理者はパスワードのみで認証するため、個人を識別する情報は含めない。
type AdminClaims struct {
	jwt.RegisteredClaims
}

// SessionSigner は管理者セッションのJWTを発行・検証する。
type SessionSigner struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionSigner はHS256で署名するSessionSignerを生成する。
func NewSessionSigner(secret []byte, maxAge time.Duration) *SessionSigner {
	return &SessionSigner{secret: secret, maxAge: maxAge, now: time.Now}
}

// Issue は新しいセッショントークンと有効期限を返す。
func (s *SessionSigner) Issue() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.maxAge)

	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はトークンの署名・有効期限・発行者を検証する。
// 検証に失敗した場合は ErrInvalidSession をラップしたエラーを返す。
func (s *SessionSigner) Verify(tokenString string) (*AdminClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
