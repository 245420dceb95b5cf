package featured

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

const day = 24 * time.Hour

type Service struct {
	store Store
	clock Clock
	th    Thresholds
}

func New(store Store, clock Clock, th Thresholds) *Service {
	return &Service{store: store, clock: clock, th: th}
}

// Performance scores one slot.
func (s *Service) Performance(ctx context.Context, slotID string) (domain.SlotPerformance, error) {
	slotID = strings.TrimSpace(slotID)
	if slotID == "" {
		return domain.SlotPerformance{}, domain.ErrValidation("slot id is required")
	}
	slot, err := s.store.SlotByID(ctx, slotID)
	if err != nil {
		return domain.SlotPerformance{}, domain.Unavailable(err)
	}
	perf, err := s.evaluate(ctx, []domain.FeaturedSlot{slot}, s.clock.Now())
	if err != nil {
		return domain.SlotPerformance{}, err
	}
	return perf[0], nil
}

// evaluate computes CTR, lift and a recommendation for each slot with one
// round trip for all save counts.
func (s *Service) evaluate(ctx context.Context, slots []domain.FeaturedSlot, now time.Time) ([]domain.SlotPerformance, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	baselineSpan := time.Duration(s.th.BaselineDays) * day

	reqs := make([]SaveWindow, 0, 2*len(slots))
	for _, sl := range slots {
		reqs = append(reqs,
			SaveWindow{ListID: sl.ListID, Window: exposure(sl, now)},
			SaveWindow{ListID: sl.ListID, Window: domain.Window{From: sl.WeekStart.Add(-baselineSpan), To: sl.WeekStart}},
		)
	}
	counts, err := s.store.SaveCounts(ctx, reqs)
	if err != nil {
		return nil, domain.Unavailable(err)
	}

	out := make([]domain.SlotPerformance, 0, len(slots))
	for i, sl := range slots {
		slotSaves, baseSaves := counts[2*i], counts[2*i+1]
		ctr := CTR(sl.Impressions, sl.Clicks)
		lift := SaveLift(slotSaves, reqs[2*i].Window.Days(), baseSaves, float64(s.th.BaselineDays))
		out = append(out, domain.SlotPerformance{
			Slot:           sl,
			CTR:            ctr,
			SlotSaves:      slotSaves,
			BaselineSaves:  baseSaves,
			SaveLift:       lift,
			Recommendation: Recommend(sl.Impressions, ctr, lift, s.th),
		})
	}
	return out, nil
}

// exposure is the slot's week clipped to now; future slots get an empty window.
func exposure(sl domain.FeaturedSlot, now time.Time) domain.Window {
	w := sl.Window()
	if now.Before(w.To) {
		w.To = now
	}
	if w.To.Before(w.From) {
		w.To = w.From
	}
	return w
}

// WeeklyReport buckets the last `weeks` weeks (current week included),
// oldest first. Weeks without slots are present with zeros.
func (s *Service) WeeklyReport(ctx context.Context, weeks int) ([]domain.WeeklyBucket, error) {
	if weeks <= 0 {
		weeks = 8
	}
	if weeks > 52 {
		weeks = 52
	}
	now := s.clock.Now()
	current := domain.WeekStart(now)
	from := current.AddDate(0, 0, -7*(weeks-1))

	slots, err := s.store.SlotsBetween(ctx, from, current.AddDate(0, 0, 7))
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	perf, err := s.evaluate(ctx, slots, now)
	if err != nil {
		return nil, err
	}

	buckets := make([]domain.WeeklyBucket, weeks)
	index := make(map[time.Time]int, weeks)
	for i := range buckets {
		ws := from.AddDate(0, 0, 7*i)
		buckets[i].WeekStart = ws
		index[ws] = i
	}
	lifts := make([]float64, weeks)
	for _, p := range perf {
		i, ok := index[domain.WeekStart(p.Slot.WeekStart)]
		if !ok {
			continue
		}
		b := &buckets[i]
		b.Slots++
		b.Impressions += p.Slot.Impressions
		b.Clicks += p.Slot.Clicks
		lifts[i] += p.SaveLift
	}
	for i := range buckets {
		b := &buckets[i]
		b.CTR = CTR(b.Impressions, b.Clicks)
		if b.Slots > 0 {
			b.AvgSaveLift = lifts[i] / float64(b.Slots)
		}
	}
	return buckets, nil
}

// CategoryInsights aggregates slots that started inside the range, best
// CTR first.
func (s *Service) CategoryInsights(ctx context.Context, r domain.Range) ([]domain.CategoryInsight, error) {
	now := s.clock.Now()
	from := domain.WeekStart(r.Window(now).From)

	slots, err := s.store.SlotsBetween(ctx, from, domain.WeekStart(now).AddDate(0, 0, 7))
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	perf, err := s.evaluate(ctx, slots, now)
	if err != nil {
		return nil, err
	}

	byCat := map[string]*domain.CategoryInsight{}
	lifts := map[string]float64{}
	for _, p := range perf {
		ci, ok := byCat[p.Slot.CategoryID]
		if !ok {
			ci = &domain.CategoryInsight{CategoryID: p.Slot.CategoryID}
			byCat[p.Slot.CategoryID] = ci
		}
		ci.Slots++
		ci.Impressions += p.Slot.Impressions
		ci.Clicks += p.Slot.Clicks
		lifts[p.Slot.CategoryID] += p.SaveLift
	}

	out := make([]domain.CategoryInsight, 0, len(byCat))
	for id, ci := range byCat {
		ci.CTR = CTR(ci.Impressions, ci.Clicks)
		ci.AvgSaveLift = lifts[id] / float64(ci.Slots)
		out = append(out, *ci)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CTR != out[j].CTR {
			return out[i].CTR > out[j].CTR
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

// RotationInsight picks the next category to feature: fewest slots in the
// trailing window, then longest since last featured, then name.
func (s *Service) RotationInsight(ctx context.Context) (domain.RotationInsight, error) {
	now := s.clock.Now()
	weeks := s.th.RotationWeeks
	if weeks <= 0 {
		weeks = 4
	}
	current := domain.WeekStart(now)
	windowStart := current.AddDate(0, 0, -7*(weeks-1))

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return domain.RotationInsight{}, domain.Unavailable(err)
	}
	slots, err := s.store.SlotsBetween(ctx, windowStart, current.AddDate(0, 0, 7))
	if err != nil {
		return domain.RotationInsight{}, domain.Unavailable(err)
	}
	last, err := s.store.LastFeaturedWeek(ctx)
	if err != nil {
		return domain.RotationInsight{}, domain.Unavailable(err)
	}

	counts := make(map[string]int, len(cats))
	for _, c := range cats {
		counts[c.ID] = 0
	}
	for _, sl := range slots {
		if _, ok := counts[sl.CategoryID]; ok {
			counts[sl.CategoryID]++
		}
	}

	ordered := make([]domain.Category, len(cats))
	copy(ordered, cats)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if counts[a.ID] != counts[b.ID] {
			return counts[a.ID] < counts[b.ID]
		}
		la, lb := last[a.ID], last[b.ID]
		if !la.Equal(lb) {
			return la.Before(lb)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	insight := domain.RotationInsight{
		WindowStart:      windowStart,
		Counts:           counts,
		UnderRepresented: []string{},
	}
	if len(ordered) == 0 {
		return insight, nil
	}
	insight.NextCategoryID = ordered[0].ID

	total := 0
	for _, n := range counts {
		total += n
	}
	mean := float64(total) / float64(len(counts))
	for _, c := range ordered {
		if float64(counts[c.ID]) < mean {
			insight.UnderRepresented = append(insight.UnderRepresented, c.ID)
		}
	}
	return insight, nil
}

// Suggestions ranks lists for an upcoming slot by recent save velocity,
// skipping lists featured inside the rotation window.
func (s *Service) Suggestions(ctx context.Context, categoryID string, limit int) ([]domain.FeatureCandidate, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	days := s.th.SuggestionDays
	if days <= 0 {
		days = 7
	}
	weeks := s.th.RotationWeeks
	if weeks <= 0 {
		weeks = 4
	}
	now := s.clock.Now()
	savesSince := now.Add(-time.Duration(days) * day)
	featuredSince := domain.WeekStart(now).AddDate(0, 0, -7*weeks)

	cands, err := s.store.Candidates(ctx, strings.TrimSpace(categoryID), savesSince, featuredSince)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	for i := range cands {
		cands[i].SaveVelocity = float64(cands[i].RecentSaves) / float64(days)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.SaveVelocity != b.SaveVelocity {
			return a.SaveVelocity > b.SaveVelocity
		}
		if !a.Entity.CreatedAt.Equal(b.Entity.CreatedAt) {
			return a.Entity.CreatedAt.After(b.Entity.CreatedAt)
		}
		return a.Entity.ID < b.Entity.ID
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}
