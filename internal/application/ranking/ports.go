package ranking

import (
	"context"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

type Clock interface{ Now() time.Time }

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type EntityRepo interface {
	// ListRankable returns visible entities in categoryID ("" = all) that were
	// created or interacted with at or after activeSince.
	ListRankable(ctx context.Context, categoryID string, activeSince time.Time) ([]domain.Entity, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// CuratedSource yields the admin-featured list ids for a week.
type CuratedSource interface {
	FeaturedListIDs(ctx context.Context, weekStart time.Time) ([]string, error)
}
