package domain

import (
	"time"
)

type EntityKind string

const (
	KindList EntityKind = "list"
	KindItem EntityKind = "item"
)

// Counters are lifetime totals maintained by the write paths of the CRUD app.
type Counters struct {
	Saves    int64 `json:"save_count"`
	Likes    int64 `json:"like_count"`
	Views    int64 `json:"view_count"`
	Comments int64 `json:"comment_count"`
}

// Entity is the read model of a list or item.
type Entity struct {
	ID         string     `json:"id"`
	Kind       EntityKind `json:"kind"`
	Title      string     `json:"title"`
	CategoryID string     `json:"category_id"`
	OwnerID    string     `json:"owner_id"`
	CreatedAt  time.Time  `json:"created_at"`
	Counters   Counters   `json:"counters"`
	IsActive   bool       `json:"is_active"`
	IsPublic   bool       `json:"is_public"`
}

// Visible reports whether the entity may appear in public rankings.
func (e Entity) Visible() bool { return e.IsActive && e.IsPublic }

type Category struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type InteractionKind string

const (
	InteractionSave    InteractionKind = "save"
	InteractionLike    InteractionKind = "like"
	InteractionComment InteractionKind = "comment"
	InteractionView    InteractionKind = "view"
	// InteractionCreate marks list creation; only the affinity engine reads it.
	InteractionCreate InteractionKind = "create"
)

func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionSave, InteractionLike, InteractionComment, InteractionView, InteractionCreate:
		return true
	}
	return false
}

// InteractionEvent is one row of the append-only interaction log.
type InteractionEvent struct {
	MessageID      string          `json:"message_id"`
	ActorUserID    string          `json:"actor_user_id"`
	TargetEntityID string          `json:"target_entity_id"`
	CategoryID     string          `json:"category_id,omitempty"`
	Kind           InteractionKind `json:"kind"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// WindowCounts are interaction totals inside one time window.
type WindowCounts struct {
	Saves    int64 `json:"saves"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
	// RecentSaves counts saves inside the most recent sub-window.
	RecentSaves int64 `json:"recent_saves"`
	// LastActivityAt is the newest interaction seen in the window; zero when none.
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
}

func (c WindowCounts) Total() int64 { return c.Saves + c.Likes + c.Comments + c.Views }

// Engagement pairs windowed counts with lifetime counters for one entity.
type Engagement struct {
	EntityID string       `json:"entity_id"`
	Window   WindowCounts `json:"window"`
	Lifetime Counters     `json:"lifetime"`
}

// TrendScore is derived and ephemeral; it lives only in the cache.
type TrendScore struct {
	EntityID   string    `json:"entity_id"`
	Score      float64   `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
	WindowDays int       `json:"window_days"`
}
