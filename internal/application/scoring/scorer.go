package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

// Scored is an entity with its trend score for one snapshot.
type Scored struct {
	Entity domain.Entity
	Score  float64
}

// Scorer turns engagement counts into a trend score. It holds no state
// beyond its weights and is safe for concurrent use.
type Scorer struct {
	w Weights
}

func New(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{w: w}, nil
}

func (s *Scorer) Weights() Weights { return s.w }

// Score is a pure function of its inputs and never returns a negative value.
//
//	base  = saves*save + comments*comment + likes*like + views*view
//	      + lifetime(weighted the same way)*lifetimeWeight
//	      + recentSaves*recentMultiplier
//	score = base * 0.5^(age/halfLife)
//
// age runs from the newest known activity (or creation) to now, so with no
// new interactions the score only decays.
func (s *Scorer) Score(e domain.Entity, window domain.WindowCounts, lifetime domain.Counters, now time.Time) float64 {
	w := s.w

	base := nn(window.Saves)*w.SaveWeight +
		nn(window.Comments)*w.CommentWeight +
		nn(window.Likes)*w.LikeWeight +
		nn(window.Views)*w.ViewWeight

	base += w.LifetimeWeight * (nn(lifetime.Saves)*w.SaveWeight +
		nn(lifetime.Comments)*w.CommentWeight +
		nn(lifetime.Likes)*w.LikeWeight +
		nn(lifetime.Views)*w.ViewWeight)

	base += nn(window.RecentSaves) * w.RecentMultiplier

	score := base * s.decay(lastActivity(e, window), now)
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	return score
}

func (s *Scorer) decay(ref, now time.Time) float64 {
	if s.w.HalfLife <= 0 || ref.IsZero() {
		return 1
	}
	age := now.Sub(ref)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(s.w.HalfLife))
}

// ScoreAll scores every entity that has an engagement row; missing rows score
// on lifetime counters alone.
func (s *Scorer) ScoreAll(entities []domain.Entity, eng map[string]domain.Engagement, now time.Time) []Scored {
	out := make([]Scored, 0, len(entities))
	for _, e := range entities {
		g, ok := eng[e.ID]
		if !ok {
			g = domain.Engagement{EntityID: e.ID, Lifetime: e.Counters}
		}
		out = append(out, Scored{Entity: e, Score: s.Score(e, g.Window, g.Lifetime, now)})
	}
	return out
}

// Less is the total order used everywhere scores are sorted:
// score desc, then newer creation first, then id asc.
func Less(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Entity.CreatedAt.Equal(b.Entity.CreatedAt) {
		return a.Entity.CreatedAt.After(b.Entity.CreatedAt)
	}
	return a.Entity.ID < b.Entity.ID
}

func Sort(items []Scored) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}

func lastActivity(e domain.Entity, window domain.WindowCounts) time.Time {
	if window.LastActivityAt.After(e.CreatedAt) {
		return window.LastActivityAt
	}
	return e.CreatedAt
}

func nn(v int64) float64 {
	if v < 0 {
		return 0
	}
	return float64(v)
}
