package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/jackc/pgx/v5"
)

var entityColumns = []string{
	"e.id", "e.kind", "e.title", "e.category_id", "e.owner_id", "e.created_at",
	"e.save_count", "e.like_count", "e.view_count", "e.comment_count",
	"e.is_active", "e.is_public",
}

type EntityRepo struct {
	db DB
}

func NewEntityRepo(db DB) *EntityRepo { return &EntityRepo{db: db} }

// ListRankable returns visible entities created or interacted with since
// activeSince. categoryID "" means all categories.
func (r *EntityRepo) ListRankable(ctx context.Context, categoryID string, activeSince time.Time) ([]domain.Entity, error) {
	q := psql.Select(entityColumns...).
		From("entities e").
		Where("e.is_active AND e.is_public").
		Where(sq.Or{
			sq.GtOrEq{"e.created_at": activeSince},
			sq.Expr("EXISTS (SELECT 1 FROM interaction_events i WHERE i.target_entity_id = e.id AND i.occurred_at >= ?)", activeSince),
		}).
		OrderBy("e.id")
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

	var out []domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EntityRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return listCategories(ctx, r.db)
}

// ListExists reports whether a visible list with id exists.
func (r *EntityRepo) ListExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM entities WHERE id = $1 AND kind = 'list' AND is_active AND is_public
		)`, id).Scan(&ok)
	return ok, err
}

// CategoryOf returns the entity's category, "" when the entity is unknown.
func (r *EntityRepo) CategoryOf(ctx context.Context, id string) (string, error) {
	var cat string
	err := r.db.QueryRow(ctx, `SELECT category_id FROM entities WHERE id = $1`, id).Scan(&cat)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return cat, err
}

func listCategories(ctx context.Context, db DB) ([]domain.Category, error) {
	rows, err := db.Query(ctx, `SELECT id, slug, name FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanEntity(row pgx.Row, extra ...any) (domain.Entity, error) {
	var e domain.Entity
	var kind string
	dest := []any{
		&e.ID, &kind, &e.Title, &e.CategoryID, &e.OwnerID, &e.CreatedAt,
		&e.Counters.Saves, &e.Counters.Likes, &e.Counters.Views, &e.Counters.Comments,
		&e.IsActive, &e.IsPublic,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Entity{}, err
	}
	e.Kind = domain.EntityKind(kind)
	return e, nil
}
