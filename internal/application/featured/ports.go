package featured

import (
	"context"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

type Clock interface{ Now() time.Time }

// SaveWindow asks for one list's save count inside a window.
type SaveWindow struct {
	ListID string
	Window domain.Window
}

type Store interface {
	SlotByID(ctx context.Context, id string) (domain.FeaturedSlot, error)
	// SlotsBetween returns slots whose week starts in [from, to), ordered by
	// week then id.
	SlotsBetween(ctx context.Context, from, to time.Time) ([]domain.FeaturedSlot, error)
	// SaveCounts answers each request in order.
	SaveCounts(ctx context.Context, reqs []SaveWindow) ([]int64, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	// LastFeaturedWeek maps category id to its most recent slot week.
	LastFeaturedWeek(ctx context.Context) (map[string]time.Time, error)
	// Candidates returns visible lists with saves after savesSince that have
	// no slot starting at or after featuredSince. categoryID "" means all.
	Candidates(ctx context.Context, categoryID string, savesSince, featuredSince time.Time) ([]domain.FeatureCandidate, error)
}
