package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/meyasu/internal/model"
)

const opinionColumns = `id, visitor_id, category_id, problem_statement, solution_proposal,
	agree_count, disagree_count, pass_count, is_visible, is_moderated, created_at, updated_at`

// rowScanner は *sql.Row と *sql.Rows の共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresOpinionRepo はPostgreSQLを使用した意見リポジトリ。
type PostgresOpinionRepo struct {
	db *sql.DB
}

// NewPostgresOpinionRepo はPostgresOpinionRepoを生成する。
func NewPostgresOpinionRepo(db *sql.DB) *PostgresOpinionRepo {
	return &PostgresOpinionRepo{db: db}
}

func scanOpinion(s rowScanner) (*model.Opinion, error) {
	o := &model.Opinion{}
	var visitorID sql.NullInt64
	err := s.Scan(
		&o.ID, &visitorID, &o.CategoryID, &o.ProblemStatement, &o.SolutionProposal,
		&o.Counts.Agree, &o.Counts.Disagree, &o.Counts.Pass,
		&o.IsVisible, &o.IsModerated, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if visitorID.Valid {
		id := visitorID.Int64
		o.VisitorID = &id
	}
	return o, nil
}

// Create は意見を作成する。
func (r *PostgresOpinionRepo) Create(ctx context.Context, o *model.Opinion) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO opinions (visitor_id, category_id, problem_statement, solution_proposal, is_visible)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		nullableID(o.VisitorID), o.CategoryID, o.ProblemStatement, o.SolutionProposal, o.IsVisible,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create opinion: %w", err)
	}
	return nil
}

// FindByID は指定IDの意見を取得する。見つからない場合はnilを返す。
func (r *PostgresOpinionRepo) FindByID(ctx context.Context, id int64) (*model.Opinion, error) {
	o, err := scanOpinion(r.db.QueryRowContext(ctx,
		`SELECT `+opinionColumns+` FROM opinions WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find opinion: %w", err)
	}
	return o, nil
}

// List は条件に一致する意見を新しい順に返す。
func (r *PostgresOpinionRepo) List(ctx context.Context, filter OpinionFilter) ([]*model.Opinion, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeHidden {
		conds = append(conds, "is_visible = true")
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	} else if filter.ExcludeFeedback {
		conds = append(conds, "category_id NOT IN (SELECT id FROM categories WHERE is_feedback = true)")
	}

	query := `SELECT ` + opinionColumns + ` FROM opinions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list opinions: %w", err)
	}
	defer rows.Close()

	var opinions []*model.Opinion
	for rows.Next() {
		o, err := scanOpinion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opinion: %w", err)
		}
		opinions = append(opinions, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate opinions: %w", err)
	}
	return opinions, nil
}

// SetVisibility は意見の表示状態を変更する。
func (r *PostgresOpinionRepo) SetVisibility(ctx context.Context, id int64, visible bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE opinions
		 SET is_visible = $2, is_moderated = true, updated_at = now()
		 WHERE id = $1`,
		id, visible,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update opinion visibility: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteWithLog は削除ログを記録して意見を削除する。
// 紐づく解決策と投票はCASCADE削除される。
func (r *PostgresOpinionRepo) DeleteWithLog(ctx context.Context, id int64, log *model.DeletionLog) (bool, error) {
	return deleteWithLog(ctx, r.db, `DELETE FROM opinions WHERE id = $1`, id, log)
}

// deleteWithLog は投稿の削除と削除ログの記録を同一トランザクションで行う。
func deleteWithLog(ctx context.Context, db *sql.DB, deleteSQL string, id int64, log *model.DeletionLog) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", log.PostType, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO deletion_logs (post_type, post_id, content, reason)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, deleted_at`,
		string(log.PostType), log.PostID, log.Content, log.Reason,
	).Scan(&log.ID, &log.DeletedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert deletion log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// nullableID はnilを許容するIDをSQLパラメータに変換する。
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// compile-time interface check
var _ OpinionRepository = (*PostgresOpinionRepo)(nil)
