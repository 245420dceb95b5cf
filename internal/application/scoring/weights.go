package scoring

import (
	"fmt"
	"time"
)

// Weights is the single source of tuning for trend scores. Every surface
// that ranks by popularity takes one of these instead of inlining constants.
type Weights struct {
	SaveWeight    float64 `json:"save_weight"`
	LikeWeight    float64 `json:"like_weight"`
	CommentWeight float64 `json:"comment_weight"`
	ViewWeight    float64 `json:"view_weight"`

	// LifetimeWeight scales the lifetime counters relative to the window counts.
	LifetimeWeight float64 `json:"lifetime_weight"`

	// RecentWindowDays is the trailing sub-window whose saves earn RecentMultiplier.
	RecentWindowDays int     `json:"recent_window_days"`
	RecentMultiplier float64 `json:"recent_multiplier"`

	// HalfLife of the decay applied since the last interaction; 0 disables decay.
	HalfLife time.Duration `json:"half_life"`
}

// DefaultWeights backs the public trending API.
func DefaultWeights() Weights {
	return Weights{
		SaveWeight:       4,
		LikeWeight:       2,
		CommentWeight:    3,
		ViewWeight:       0.25,
		LifetimeWeight:   0.05,
		RecentWindowDays: 7,
		RecentMultiplier: 5,
		HalfLife:         72 * time.Hour,
	}
}

// PulseWeights backs the admin pulse view. It intentionally differs from
// DefaultWeights until product confirms whether the two should converge.
func PulseWeights() Weights {
	return Weights{
		SaveWeight:       3,
		LikeWeight:       1,
		CommentWeight:    2,
		ViewWeight:       0.5,
		LifetimeWeight:   0.1,
		RecentWindowDays: 7,
		RecentMultiplier: 2,
		HalfLife:         0,
	}
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"save_weight":       w.SaveWeight,
		"like_weight":       w.LikeWeight,
		"comment_weight":    w.CommentWeight,
		"view_weight":       w.ViewWeight,
		"lifetime_weight":   w.LifetimeWeight,
		"recent_multiplier": w.RecentMultiplier,
	} {
		if v < 0 {
			return fmt.Errorf("scoring: %s must be >= 0, got %v", name, v)
		}
	}
	if w.RecentWindowDays < 0 {
		return fmt.Errorf("scoring: recent_window_days must be >= 0, got %d", w.RecentWindowDays)
	}
	if w.HalfLife < 0 {
		return fmt.Errorf("scoring: half_life must be >= 0, got %s", w.HalfLife)
	}
	return nil
}

// Diff lists the fields where w and o disagree, by json name.
func (w Weights) Diff(o Weights) []string {
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("save_weight", w.SaveWeight != o.SaveWeight)
	add("like_weight", w.LikeWeight != o.LikeWeight)
	add("comment_weight", w.CommentWeight != o.CommentWeight)
	add("view_weight", w.ViewWeight != o.ViewWeight)
	add("lifetime_weight", w.LifetimeWeight != o.LifetimeWeight)
	add("recent_window_days", w.RecentWindowDays != o.RecentWindowDays)
	add("recent_multiplier", w.RecentMultiplier != o.RecentMultiplier)
	add("half_life", w.HalfLife != o.HalfLife)
	return out
}
