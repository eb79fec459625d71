package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/meyasu/internal/model"
)

const solutionColumns = `id, opinion_id, visitor_id, title, description,
	support_count, oppose_count, pass_count, is_visible, created_at, updated_at`

// PostgresSolutionRepo はPostgreSQLを使用した解決策リポジトリ。
type PostgresSolutionRepo struct {
	db *sql.DB
}

// NewPostgresSolutionRepo はPostgresSolutionRepoを生成する。
func NewPostgresSolutionRepo(db *sql.DB) *PostgresSolutionRepo {
	return &PostgresSolutionRepo{db: db}
}

func scanSolution(s rowScanner) (*model.Solution, error) {
	sol := &model.Solution{}
	var visitorID sql.NullInt64
	err := s.Scan(
		&sol.ID, &sol.OpinionID, &visitorID, &sol.Title, &sol.Description,
		&sol.Counts.Support, &sol.Counts.Oppose, &sol.Counts.Pass,
		&sol.IsVisible, &sol.CreatedAt, &sol.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if visitorID.Valid {
		id := visitorID.Int64
		sol.VisitorID = &id
	}
	return sol, nil
}

// Create は解決策を作成する。
func (r *PostgresSolutionRepo) Create(ctx context.Context, s *model.Solution) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO solutions (opinion_id, visitor_id, title, description, is_visible)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.OpinionID, nullableID(s.VisitorID), s.Title, s.Description, s.IsVisible,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create solution: %w", err)
	}
	return nil
}

// FindByID は指定IDの解決策を取得する。見つからない場合はnilを返す。
func (r *PostgresSolutionRepo) FindByID(ctx context.Context, id int64) (*model.Solution, error) {
	s, err := scanSolution(r.db.QueryRowContext(ctx,
		`SELECT `+solutionColumns+` FROM solutions WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find solution: %w", err)
	}
	return s, nil
}

// ListByOpinion は意見に紐づく表示中の解決策を古い順に返す。
func (r *PostgresSolutionRepo) ListByOpinion(ctx context.Context, opinionID int64) ([]*model.Solution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+solutionColumns+`
		 FROM solutions
		 WHERE opinion_id = $1 AND is_visible = true
		 ORDER BY created_at, id`,
		opinionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}
	defer rows.Close()

	var solutions []*model.Solution
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solution: %w", err)
		}
		solutions = append(solutions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate solutions: %w", err)
	}
	return solutions, nil
}

// DeleteWithLog は削除ログを記録して解決策を削除する。
func (r *PostgresSolutionRepo) DeleteWithLog(ctx context.Context, id int64, log *model.DeletionLog) (bool, error) {
	return deleteWithLog(ctx, r.db, `DELETE FROM solutions WHERE id = $1`, id, log)
}

// compile-time interface check
var _ SolutionRepository = (*PostgresSolutionRepo)(nil)
