package postgres

import (
	"context"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

// List creation is derived from entities rather than logged as an event.
const categoryInteractionsSQL = `
SELECT e.category_id, i.kind, COUNT(*)
FROM interaction_events i
JOIN entities e ON e.id = i.target_entity_id
WHERE i.actor_user_id = $1
GROUP BY e.category_id, i.kind
UNION ALL
SELECT category_id, 'create', COUNT(*)
FROM entities
WHERE owner_id = $1 AND kind = 'list'
GROUP BY category_id
ORDER BY 1, 2
`

const interactingUsersSQL = `
SELECT actor_user_id FROM interaction_events
UNION
SELECT owner_id FROM entities WHERE kind = 'list'
ORDER BY 1
`

type AffinityRepo struct {
	db DB
}

func NewAffinityRepo(db DB) *AffinityRepo { return &AffinityRepo{db: db} }

func (r *AffinityRepo) CategoryInteractions(ctx context.Context, userID string) ([]domain.CategoryInteraction, error) {
	rows, err := r.db.Query(ctx, categoryInteractionsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategoryInteraction
	for rows.Next() {
		var ci domain.CategoryInteraction
		var kind string
		if err := rows.Scan(&ci.CategoryID, &kind, &ci.Count); err != nil {
			return nil, err
		}
		ci.Kind = domain.InteractionKind(kind)
		out = append(out, ci)
	}
	return out, rows.Err()
}

// ReplaceAffinities overwrites the user's rows: delete then insert, one tx.
func (r *AffinityRepo) ReplaceAffinities(ctx context.Context, userID string, rows []domain.CategoryAffinity) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM category_affinities WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		b := &pgx.Batch{}
		for _, a := range rows {
			b.Queue(`
				INSERT INTO category_affinities (user_id, category_id, weight, updated_at)
				VALUES ($1, $2, $3, $4)
			`, userID, a.CategoryID, a.Weight, a.UpdatedAt)
		}
		br := tx.SendBatch(ctx, b)
		for range rows {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})
}

func (r *AffinityRepo) Affinities(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, `SELECT category_id, weight FROM category_affinities WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var cat string
		var w float64
		if err := rows.Scan(&cat, &w); err != nil {
			return nil, err
		}
		out[cat] = w
	}
	return out, rows.Err()
}

func (r *AffinityRepo) InteractingUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, interactingUsersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
