package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/meyasu/internal/model"
)

// PostgresVoteRepo はPostgreSQLを使用した投票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// UpsertOpinionVote は意見への投票をUPSERTし、票数を再集計する。
// UNIQUE(visitor_id, opinion_id)制約を利用したINSERT ON CONFLICTで実装する。
// 対象の行をFOR UPDATEでロックし、同じ意見への並行投票の再集計を直列化する。
func (r *PostgresVoteRepo) UpsertOpinionVote(ctx context.Context, visitorID, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error) {
	var counts model.OpinionVoteCounts

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM opinions WHERE id = $1 FOR UPDATE`, opinionID); err != nil {
		return counts, fmt.Errorf("failed to lock opinion: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO opinion_votes (visitor_id, opinion_id, vote_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (visitor_id, opinion_id) DO UPDATE SET
		     vote_type = EXCLUDED.vote_type,
		     updated_at = now()`,
		visitorID, opinionID, string(voteType),
	)
	if err != nil {
		return counts, fmt.Errorf("failed to upsert opinion vote: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE opinions SET
		     agree_count    = (SELECT count(*) FROM opinion_votes WHERE opinion_id = $1 AND vote_type = 'agree'),
		     disagree_count = (SELECT count(*) FROM opinion_votes WHERE opinion_id = $1 AND vote_type = 'disagree'),
		     pass_count     = (SELECT count(*) FROM opinion_votes WHERE opinion_id = $1 AND vote_type = 'pass'),
		     updated_at     = now()
		 WHERE id = $1
		 RETURNING agree_count, disagree_count, pass_count`,
		opinionID,
	).Scan(&counts.Agree, &counts.Disagree, &counts.Pass)
	if err != nil {
		return counts, fmt.Errorf("failed to recount opinion votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return counts, nil
}

// FindOpinionVote は訪問者の意見への投票を取得する。見つからない場合はnilを返す。
func (r *PostgresVoteRepo) FindOpinionVote(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error) {
	v := &model.OpinionVote{}
	var voteType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, visitor_id, opinion_id, vote_type, created_at, updated_at
		 FROM opinion_votes
		 WHERE visitor_id = $1 AND opinion_id = $2`,
		visitorID, opinionID,
	).Scan(&v.ID, &v.VisitorID, &v.OpinionID, &voteType, &v.CreatedAt, &v.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find opinion vote: %w", err)
	}
	v.VoteType = model.OpinionVoteType(voteType)
	return v, nil
}

// UpsertSolutionVote は解決策への投票をUPSERTし、票数を再集計する。
func (r *PostgresVoteRepo) UpsertSolutionVote(ctx context.Context, visitorID, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error) {
	var counts model.SolutionVoteCounts

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM solutions WHERE id = $1 FOR UPDATE`, solutionID); err != nil {
		return counts, fmt.Errorf("failed to lock solution: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO solution_votes (visitor_id, solution_id, vote_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (visitor_id, solution_id) DO UPDATE SET
		     vote_type = EXCLUDED.vote_type,
		     updated_at = now()`,
		visitorID, solutionID, string(voteType),
	)
	if err != nil {
		return counts, fmt.Errorf("failed to upsert solution vote: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE solutions SET
		     support_count = (SELECT count(*) FROM solution_votes WHERE solution_id = $1 AND vote_type = 'support'),
		     oppose_count  = (SELECT count(*) FROM solution_votes WHERE solution_id = $1 AND vote_type = 'oppose'),
		     pass_count    = (SELECT count(*) FROM solution_votes WHERE solution_id = $1 AND vote_type = 'pass'),
		     updated_at    = now()
		 WHERE id = $1
		 RETURNING support_count, oppose_count, pass_count`,
		solutionID,
	).Scan(&counts.Support, &counts.Oppose, &counts.Pass)
	if err != nil {
		return counts, fmt.Errorf("failed to recount solution votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
