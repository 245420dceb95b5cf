package ranking

import (
	"sort"

	"github.com/baechuer/curation-service/internal/application/scoring"
	"github.com/baechuer/curation-service/internal/domain"
)

// ComposeOptions controls truncation and badge assignment.
type ComposeOptions struct {
	// Limit truncates the output; <= 0 keeps everything.
	Limit int
	// TrendingK entities with the highest positive score get BadgeTrending.
	TrendingK int
	// RisingK entities with the largest week-over-week delta get BadgeRising.
	RisingK int
	// MinGrowth is the smallest absolute delta that can earn BadgeRising.
	MinGrowth float64
}

func DefaultComposeOptions() ComposeOptions {
	return ComposeOptions{TrendingK: 5, RisingK: 5, MinGrowth: 5}
}

// Compose orders current by (score desc, created desc, id asc), assigns
// badges and truncates. previous maps entity id to last week's score;
// curated is the admin-set featured id set. The result depends only on the
// arguments.
func Compose(current []scoring.Scored, previous map[string]float64, curated map[string]bool, opts ComposeOptions) []domain.Ranked {
	items := make([]scoring.Scored, len(current))
	copy(items, current)
	scoring.Sort(items)

	trending := make(map[string]bool, opts.TrendingK)
	for _, it := range items {
		if len(trending) >= opts.TrendingK {
			break
		}
		if it.Score > 0 {
			trending[it.Entity.ID] = true
		}
	}

	deltas := make(map[string]float64, len(items))
	for _, it := range items {
		deltas[it.Entity.ID] = it.Score - previous[it.Entity.ID]
	}
	rising := pickRising(items, deltas, trending, opts)

	n := len(items)
	if opts.Limit > 0 && opts.Limit < n {
		n = opts.Limit
	}
	out := make([]domain.Ranked, 0, n)
	for i, it := range items[:n] {
		out = append(out, domain.Ranked{
			Entity: it.Entity,
			Score:  it.Score,
			Delta:  deltas[it.Entity.ID],
			Rank:   i + 1,
			Badge:  badgeFor(it.Entity.ID, curated, trending, rising),
		})
	}
	return out
}

// ComposeByCategory runs Compose independently for each category.
func ComposeByCategory(current []scoring.Scored, previous map[string]float64, curated map[string]bool, opts ComposeOptions) map[string][]domain.Ranked {
	parts := make(map[string][]scoring.Scored)
	for _, it := range current {
		parts[it.Entity.CategoryID] = append(parts[it.Entity.CategoryID], it)
	}
	out := make(map[string][]domain.Ranked, len(parts))
	for cat, items := range parts {
		out[cat] = Compose(items, previous, curated, opts)
	}
	return out
}

func pickRising(sorted []scoring.Scored, deltas map[string]float64, trending map[string]bool, opts ComposeOptions) map[string]bool {
	rising := make(map[string]bool, opts.RisingK)
	if opts.RisingK <= 0 {
		return rising
	}

	var cands []scoring.Scored
	for _, it := range sorted {
		d := deltas[it.Entity.ID]
		if trending[it.Entity.ID] || d <= 0 || d < opts.MinGrowth {
			continue
		}
		cands = append(cands, it)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		di, dj := deltas[cands[i].Entity.ID], deltas[cands[j].Entity.ID]
		if di != dj {
			return di > dj
		}
		return scoring.Less(cands[i], cands[j])
	})
	for _, c := range cands {
		if len(rising) >= opts.RisingK {
			break
		}
		rising[c.Entity.ID] = true
	}
	return rising
}

func badgeFor(id string, curated, trending, rising map[string]bool) domain.Badge {
	switch {
	case curated[id]:
		return domain.BadgeFeatured
	case trending[id]:
		return domain.BadgeTrending
	case rising[id]:
		return domain.BadgeRising
	default:
		return domain.BadgeNone
	}
}
