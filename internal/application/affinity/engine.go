package affinity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type Clock interface{ Now() time.Time }

type Store interface {
	// CategoryInteractions tallies every interaction the user made, grouped by
	// the target's category and the interaction kind.
	CategoryInteractions(ctx context.Context, userID string) ([]domain.CategoryInteraction, error)
	// ReplaceAffinities deletes the user's rows and inserts rows in one transaction.
	ReplaceAffinities(ctx context.Context, userID string, rows []domain.CategoryAffinity) error
	Affinities(ctx context.Context, userID string) (map[string]float64, error)
	// InteractingUserIDs lists users with at least one interaction, ordered by id.
	InteractingUserIDs(ctx context.Context) ([]string, error)
}

// KindWeights scores one interaction of each kind.
type KindWeights map[domain.InteractionKind]float64

func DefaultKindWeights() KindWeights {
	return KindWeights{
		domain.InteractionCreate:  5,
		domain.InteractionSave:    3,
		domain.InteractionComment: 2,
		domain.InteractionLike:    2,
		domain.InteractionView:    1,
	}
}

type Engine struct {
	store   Store
	clock   Clock
	weights KindWeights
}

func New(store Store, clock Clock, weights KindWeights) *Engine {
	if weights == nil {
		weights = DefaultKindWeights()
	}
	return &Engine{store: store, clock: clock, weights: weights}
}

// Normalize turns per-category tallies into weights in [0,1] that sum to 1.
// A user with no weighted interactions gets an empty mapping.
func Normalize(rows []domain.CategoryInteraction, weights KindWeights) map[string]float64 {
	raw := make(map[string]float64)
	total := 0.0
	for _, r := range rows {
		if r.CategoryID == "" || r.Count <= 0 {
			continue
		}
		w := weights[r.Kind] * float64(r.Count)
		if w <= 0 {
			continue
		}
		raw[r.CategoryID] += w
		total += w
	}

	out := make(map[string]float64, len(raw))
	if total == 0 {
		return out
	}
	for cat, w := range raw {
		out[cat] = w / total
	}
	return out
}

// Compute derives the user's affinity from their interaction log without
// persisting it.
func (e *Engine) Compute(ctx context.Context, userID string) (map[string]float64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrValidation("user id is required")
	}
	rows, err := e.store.CategoryInteractions(ctx, userID)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return Normalize(rows, e.weights), nil
}

// Recompute overwrites the user's persisted rows with a fresh Compute.
// Running it twice with no new interactions leaves identical rows.
func (e *Engine) Recompute(ctx context.Context, userID string) (map[string]float64, error) {
	weights, err := e.Compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	cats := make([]string, 0, len(weights))
	for cat := range weights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	now := e.clock.Now()
	rows := make([]domain.CategoryAffinity, 0, len(cats))
	for _, cat := range cats {
		rows = append(rows, domain.CategoryAffinity{
			UserID:     userID,
			CategoryID: cat,
			Weight:     weights[cat],
			UpdatedAt:  now,
		})
	}
	if err := e.store.ReplaceAffinities(ctx, userID, rows); err != nil {
		return nil, domain.Unavailable(err)
	}
	return weights, nil
}

// Get reads the persisted mapping; it may lag behind Compute until the next run.
func (e *Engine) Get(ctx context.Context, userID string) (map[string]float64, error) {
	m, err := e.store.Affinities(ctx, userID)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return m, nil
}

type RunStats struct {
	Users  int `json:"users"`
	Failed int `json:"failed"`
}

// RecomputeAll walks every interacting user sequentially. A failing user is
// logged and skipped; the run reports an error if any user failed.
func (e *Engine) RecomputeAll(ctx context.Context) (RunStats, error) {
	ids, err := e.store.InteractingUserIDs(ctx)
	if err != nil {
		return RunStats{}, domain.Unavailable(err)
	}

	var stats RunStats
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Users++
		if _, err := e.Recompute(ctx, id); err != nil {
			stats.Failed++
			zlog.Error().Err(err).Str("user_id", id).Msg("affinity recompute failed")
		}
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("affinity: %d of %d users failed", stats.Failed, stats.Users)
	}
	return stats, nil
}
