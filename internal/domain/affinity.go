package domain

import (
	"time"
)

// CategoryAffinity is one (user, category) row. Rows for a user are
// replaced wholesale on each recompute.
type CategoryAffinity struct {
	UserID     string    `json:"user_id"`
	CategoryID string    `json:"category_id"`
	Weight     float64   `json:"weight"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryInteraction is a per-category tally of one user's interactions by kind.
type CategoryInteraction struct {
	CategoryID string
	Kind       InteractionKind
	Count      int64
}

type CreatorScore struct {
	OwnerID string  `json:"owner_id"`
	Score   float64 `json:"score"`
	Lists   int     `json:"lists"`
}
