package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/meyasu/internal/model"
)

// PostgresVisitorRepo はPostgreSQLを使用した匿名訪問者リポジトリ。
type PostgresVisitorRepo struct {
	db *sql.DB
}

// NewPostgresVisitorRepo はPostgresVisitorRepoを生成する。
func NewPostgresVisitorRepo(db *sql.DB) *PostgresVisitorRepo {
	return &PostgresVisitorRepo{db: db}
}

// Create は訪問者レコードを作成する。
func (r *PostgresVisitorRepo) Create(ctx context.Context, v *model.Visitor) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO visitors (token, created_at, last_seen_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		v.Token, v.CreatedAt, v.LastSeenAt, v.ExpiresAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to create visitor: %w", err)
	}
	return nil
}

// FindActiveByToken はトークンに対応する有効な訪問者を取得する。期限切れの場合はnilを返す。
func (r *PostgresVisitorRepo) FindActiveByToken(ctx context.Context, token string, now time.Time) (*model.Visitor, error) {
	v := &model.Visitor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, created_at, last_seen_at, expires_at
		 FROM visitors
		 WHERE token = $1 AND expires_at > $2`,
		token, now,
	).Scan(&v.ID, &v.Token, &v.CreatedAt, &v.LastSeenAt, &v.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find visitor: %w", err)
	}

	return v, nil
}

// TouchLastSeen は最終アクセス時刻を更新する。
func (r *PostgresVisitorRepo) TouchLastSeen(ctx context.Context, id int64, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE visitors SET last_seen_at = $2 WHERE id = $1`,
		id, seenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to touch visitor: %w", err)
	}
	return nil
}

// DeleteExpired は失効した訪問者レコードを削除する。
// 投票・投稿の visitor_id は ON DELETE SET NULL により切り離され、集計は維持される。
func (r *PostgresVisitorRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM visitors WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired visitors: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ VisitorRepository = (*PostgresVisitorRepo)(nil)
