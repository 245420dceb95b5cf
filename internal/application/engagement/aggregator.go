package engagement

import (
	"context"
	"sort"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

// Store reads raw interaction aggregates. Implementations must not write.
type Store interface {
	// WindowCounts returns counts for entities that have at least one
	// interaction in w. Saves at or after recentFrom also count as RecentSaves.
	WindowCounts(ctx context.Context, entityIDs []string, w domain.Window, recentFrom time.Time) (map[string]domain.WindowCounts, error)
	LifetimeCounters(ctx context.Context, entityIDs []string) (map[string]domain.Counters, error)
}

type Aggregator struct {
	store Store
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate returns one Engagement per requested id, zeros included.
// recentDays <= 0 disables the recent sub-window.
func (a *Aggregator) Aggregate(ctx context.Context, entityIDs []string, w domain.Window, recentDays int) (map[string]domain.Engagement, error) {
	ids := dedupe(entityIDs)
	out := make(map[string]domain.Engagement, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	recentFrom := w.To
	if recentDays > 0 {
		recentFrom = w.To.Add(-time.Duration(recentDays) * 24 * time.Hour)
		if recentFrom.Before(w.From) {
			recentFrom = w.From
		}
	}

	counts, err := a.store.WindowCounts(ctx, ids, w, recentFrom)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	lifetime, err := a.store.LifetimeCounters(ctx, ids)
	if err != nil {
		return nil, domain.Unavailable(err)
	}

	for _, id := range ids {
		out[id] = domain.Engagement{
			EntityID: id,
			Window:   counts[id],
			Lifetime: lifetime[id],
		}
	}
	return out, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
