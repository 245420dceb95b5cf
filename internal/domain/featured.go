package domain

import (
	"time"
)

// FeaturedSlot counters are incremented by tracking collaborators; the
// analytics side only reads them.
type FeaturedSlot struct {
	ID          string    `json:"id"`
	ListID      string    `json:"list_id"`
	CategoryID  string    `json:"category_id"`
	WeekStart   time.Time `json:"week_start"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
}

// Window is the slot's active exposure window (one week from WeekStart).
func (s FeaturedSlot) Window() Window {
	return Window{From: s.WeekStart, To: s.WeekStart.AddDate(0, 0, 7)}
}

type SlotAction string

const (
	ActionKeep   SlotAction = "keep"
	ActionRotate SlotAction = "rotate"
	ActionExtend SlotAction = "extend"
)

type SlotPerformance struct {
	Slot           FeaturedSlot `json:"slot"`
	CTR            float64      `json:"ctr"`
	SlotSaves      int64        `json:"slot_saves"`
	BaselineSaves  int64        `json:"baseline_saves"`
	SaveLift       float64      `json:"save_lift"`
	Recommendation SlotAction   `json:"recommendation"`
}

type WeeklyBucket struct {
	WeekStart   time.Time `json:"week_start"`
	Slots       int       `json:"slots"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	CTR         float64   `json:"ctr"`
	AvgSaveLift float64   `json:"avg_save_lift"`
}

type CategoryInsight struct {
	CategoryID  string  `json:"category_id"`
	Slots       int     `json:"slots"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	AvgSaveLift float64 `json:"avg_save_lift"`
}

type RotationInsight struct {
	WindowStart      time.Time      `json:"window_start"`
	Counts           map[string]int `json:"counts"`
	NextCategoryID   string         `json:"next_category_id"`
	UnderRepresented []string       `json:"under_represented"`
}

// FeatureCandidate is a list suggested for an upcoming featured slot.
type FeatureCandidate struct {
	Entity       Entity  `json:"entity"`
	RecentSaves  int64   `json:"recent_saves"`
	SaveVelocity float64 `json:"save_velocity"`
}
