package featured

import (
	"math"

	"github.com/baechuer/curation-service/internal/domain"
)

type Thresholds struct {
	// MinImpressions is the sample size below which CTR is not trusted.
	MinImpressions int64
	CTRFloor       float64
	ExtendLift     float64
	BaselineDays   int
	RotationWeeks  int
	SuggestionDays int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinImpressions: 1000,
		CTRFloor:       0.02,
		ExtendLift:     1.5,
		BaselineDays:   28,
		RotationWeeks:  4,
		SuggestionDays: 7,
	}
}

// CTR is clicks/impressions, 0 when there were no impressions.
func CTR(impressions, clicks int64) float64 {
	if impressions <= 0 || clicks <= 0 {
		return 0
	}
	return float64(clicks) / float64(impressions)
}

// SaveLift compares save velocity inside the slot window with the list's
// baseline velocity before it. A zero baseline makes the lift equal to the
// in-window velocity.
func SaveLift(slotSaves int64, slotDays float64, baselineSaves int64, baselineDays float64) float64 {
	if slotDays <= 0 || slotSaves <= 0 {
		return 0
	}
	slotVel := float64(slotSaves) / slotDays
	if baselineDays <= 0 || baselineSaves <= 0 {
		return slotVel
	}
	lift := slotVel / (float64(baselineSaves) / baselineDays)
	if math.IsNaN(lift) || math.IsInf(lift, 0) {
		return 0
	}
	return lift
}

// Recommend: low CTR on enough traffic rotates, strong lift extends.
func Recommend(impressions int64, ctr, lift float64, th Thresholds) domain.SlotAction {
	if impressions >= th.MinImpressions && ctr < th.CTRFloor {
		return domain.ActionRotate
	}
	if th.ExtendLift > 0 && lift >= th.ExtendLift {
		return domain.ActionExtend
	}
	return domain.ActionKeep
}
