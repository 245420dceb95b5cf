package postgres

import (
	"context"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

const windowCountsSQL = `
SELECT target_entity_id,
       COUNT(*) FILTER (WHERE kind = 'save'),
       COUNT(*) FILTER (WHERE kind = 'like'),
       COUNT(*) FILTER (WHERE kind = 'comment'),
       COUNT(*) FILTER (WHERE kind = 'view'),
       COUNT(*) FILTER (WHERE kind = 'save' AND occurred_at >= $4),
       MAX(occurred_at)
FROM interaction_events
WHERE target_entity_id = ANY($1)
  AND occurred_at >= $2 AND occurred_at < $3
GROUP BY target_entity_id
`

const lifetimeSQL = `
SELECT id, save_count, like_count, view_count, comment_count
FROM entities
WHERE id = ANY($1)
`

// EngagementRepo reads interaction aggregates. It never writes.
type EngagementRepo struct {
	db DB
}

func NewEngagementRepo(db DB) *EngagementRepo { return &EngagementRepo{db: db} }

func (r *EngagementRepo) WindowCounts(ctx context.Context, ids []string, w domain.Window, recentFrom time.Time) (map[string]domain.WindowCounts, error) {
	out := make(map[string]domain.WindowCounts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, windowCountsSQL, ids, w.From, w.To, recentFrom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var c domain.WindowCounts
		if err := rows.Scan(&id, &c.Saves, &c.Likes, &c.Comments, &c.Views, &c.RecentSaves, &c.LastActivityAt); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

func (r *EngagementRepo) LifetimeCounters(ctx context.Context, ids []string) (map[string]domain.Counters, error) {
	out := make(map[string]domain.Counters, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, lifetimeSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var c domain.Counters
		if err := rows.Scan(&id, &c.Saves, &c.Likes, &c.Views, &c.Comments); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}
