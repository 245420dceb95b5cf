package postgres

import (
	"context"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CommentRepo struct {
	*EntityRepo
	db DB
}

func NewCommentRepo(db DB) *CommentRepo {
	return &CommentRepo{EntityRepo: NewEntityRepo(db), db: db}
}

// Create inserts the comment and its submission log row in one transaction.
// Visible comments also append a comment interaction so they feed engagement
// and affinity; filtered ones never count.
func (r *CommentRepo) Create(ctx context.Context, c domain.Comment, rec domain.SubmissionRecord) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO comments (id, list_id, author_id, body, content_hash, is_filtered, should_review, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c.ID, c.ListID, c.AuthorID, c.Body, c.ContentHash, c.IsFiltered, c.ShouldReview, c.CreatedAt); err != nil {
			return err
		}
		if err := insertSubmission(ctx, tx, rec); err != nil {
			return err
		}
		if c.IsFiltered {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO interaction_events (message_id, actor_user_id, target_entity_id, kind, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (message_id) DO NOTHING
		`, commentMessageID(c.ID), c.AuthorID, c.ListID, string(domain.InteractionComment), c.CreatedAt)
		return err
	})
}

func commentMessageID(commentID string) string { return "comment:" + commentID }

// ListVisible hides filtered comments from everyone but their author.
func (r *CommentRepo) ListVisible(ctx context.Context, listID, viewerID string, limit int) ([]domain.Comment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, list_id, author_id, body, content_hash, is_filtered, should_review, created_at
		FROM comments
		WHERE list_id = $1 AND (NOT is_filtered OR author_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, listID, viewerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ListID, &c.AuthorID, &c.Body, &c.ContentHash, &c.IsFiltered, &c.ShouldReview, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
