package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

// SubmissionRepo backs the anti-abuse filter: the submission log and
// per-user reputation.
type SubmissionRepo struct {
	db DB
}

func NewSubmissionRepo(db DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

func (r *SubmissionRepo) CountSince(ctx context.Context, actorID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE actor_id = $1 AND created_at > $2`,
		actorID, since,
	).Scan(&n)
	return n, err
}

func (r *SubmissionRepo) HashExists(ctx context.Context, actorID string, targetType domain.TargetType, targetID, hash string, since time.Time) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE actor_id = $1 AND target_type = $2 AND target_id = $3
			  AND content_hash = $4 AND created_at > $5
		)`, actorID, string(targetType), targetID, hash, since,
	).Scan(&ok)
	return ok, err
}

// Reputation is 0 for users without a row.
func (r *SubmissionRepo) Reputation(ctx context.Context, actorID string) (int, error) {
	var score int
	err := r.db.QueryRow(ctx, `SELECT score FROM user_reputation WHERE user_id = $1`, actorID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return score, err
}

func insertSubmission(ctx context.Context, tx pgx.Tx, rec domain.SubmissionRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO submissions (actor_id, target_type, target_id, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ActorID, string(rec.TargetType), rec.TargetID, rec.ContentHash, rec.CreatedAt)
	return err
}
