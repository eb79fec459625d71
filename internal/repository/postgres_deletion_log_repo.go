package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/meyasu/internal/model"
)

// PostgresDeletionLogRepo はPostgreSQLを使用した削除ログリポジトリ。
// 記録は PostgresOpinionRepo / PostgresSolutionRepo の DeleteWithLog が削除と同時に行う。
type PostgresDeletionLogRepo struct {
	db *sql.DB
}

// NewPostgresDeletionLogRepo はPostgresDeletionLogRepoを生成する。
func NewPostgresDeletionLogRepo(db *sql.DB) *PostgresDeletionLogRepo {
	return &PostgresDeletionLogRepo{db: db}
}

// List は削除ログを新しい順に返す。
func (r *PostgresDeletionLogRepo) List(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, post_type, post_id, content, reason, deleted_at
		 FROM deletion_logs
		 ORDER BY deleted_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list deletion logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.DeletionLog
	for rows.Next() {
		l := &model.DeletionLog{}
		var postType string
		if err := rows.Scan(&l.ID, &postType, &l.PostID, &l.Content, &l.Reason, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deletion log: %w", err)
		}
		l.PostType = model.PostType(postType)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deletion logs: %w", err)
	}
	return logs, nil
}

// compile-time interface check
var _ DeletionLogRepository = (*PostgresDeletionLogRepo)(nil)
