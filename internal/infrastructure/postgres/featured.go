package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/baechuer/curation-service/internal/application/featured"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, list_id, category_id, week_start, impressions, clicks`

const saveCountSQL = `
SELECT COUNT(*) FROM interaction_events
WHERE target_entity_id = $1 AND kind = 'save' AND occurred_at >= $2 AND occurred_at < $3
`

// candidateCap bounds the suggestion scan; callers page far below it.
const candidateCap = 500

type FeaturedRepo struct {
	db DB
}

func NewFeaturedRepo(db DB) *FeaturedRepo { return &FeaturedRepo{db: db} }

func (r *FeaturedRepo) SlotByID(ctx context.Context, id string) (domain.FeaturedSlot, error) {
	s, err := scanSlot(r.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM featured_slots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FeaturedSlot{}, domain.ErrNotFound("featured slot not found")
	}
	return s, err
}

func (r *FeaturedRepo) SlotsBetween(ctx context.Context, from, to time.Time) ([]domain.FeaturedSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+` FROM featured_slots
		WHERE week_start >= $1 AND week_start < $2
		ORDER BY week_start, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeaturedSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveCounts answers every window in one batch round trip.
func (r *FeaturedRepo) SaveCounts(ctx context.Context, reqs []featured.SaveWindow) ([]int64, error) {
	out := make([]int64, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}
	b := &pgx.Batch{}
	for _, q := range reqs {
		b.Queue(saveCountSQL, q.ListID, q.Window.From, q.Window.To)
	}
	br := r.db.SendBatch(ctx, b)
	defer func() { _ = br.Close() }()

	for i := range reqs {
		if err := br.QueryRow().Scan(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *FeaturedRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return listCategories(ctx, r.db)
}

func (r *FeaturedRepo) LastFeaturedWeek(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.Query(ctx, `SELECT category_id, MAX(week_start) FROM featured_slots GROUP BY category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var cat string
		var week time.Time
		if err := rows.Scan(&cat, &week); err != nil {
			return nil, err
		}
		out[cat] = week.UTC()
	}
	return out, rows.Err()
}

func (r *FeaturedRepo) Candidates(ctx context.Context, categoryID string, savesSince, featuredSince time.Time) ([]domain.FeatureCandidate, error) {
	q := psql.Select(append(append([]string{}, entityColumns...), "COUNT(i.id) AS recent_saves")...).
		From("entities e").
		Join("interaction_events i ON i.target_entity_id = e.id AND i.kind = 'save' AND i.occurred_at >= ?", savesSince).
		Where("e.kind = 'list' AND e.is_active AND e.is_public").
		Where("NOT EXISTS (SELECT 1 FROM featured_slots f WHERE f.list_id = e.id AND f.week_start >= ?)", featuredSince).
		GroupBy("e.id").
		OrderBy("recent_saves DESC", "e.id").
		Limit(candidateCap)
	if categoryID != "" {
		q = q.Where(sq.Eq{"e.category_id": categoryID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeatureCandidate
	for rows.Next() {
		var c domain.FeatureCandidate
		e, err := scanEntity(rows, &c.RecentSaves)
		if err != nil {
			return nil, err
		}
		c.Entity = e
		out = append(out, c)
	}
	return out, rows.Err()
}

// FeaturedListIDs is the curated set for one week.
func (r *FeaturedRepo) FeaturedListIDs(ctx context.Context, weekStart time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT list_id FROM featured_slots WHERE week_start = $1 ORDER BY list_id`,
		domain.WeekStart(weekStart),
	)
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

func scanSlot(row pgx.Row) (domain.FeaturedSlot, error) {
	var s domain.FeaturedSlot
	if err := row.Scan(&s.ID, &s.ListID, &s.CategoryID, &s.WeekStart, &s.Impressions, &s.Clicks); err != nil {
		return domain.FeaturedSlot{}, err
	}
	s.WeekStart = s.WeekStart.UTC()
	return s, nil
}
