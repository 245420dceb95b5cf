package ranking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/application/engagement"
	"github.com/baechuer/curation-service/internal/application/scoring"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/metrics"
	zlog "github.com/rs/zerolog/log"
)

// Profile names a weight set. The admin pulse view is tuned separately from
// the public trending feed.
type Profile string

const (
	ProfileTrending Profile = "trending"
	ProfilePulse    Profile = "pulse"
)

const (
	week         = 7 * 24 * time.Hour
	defaultLimit = 20
)

type Query struct {
	CategoryID string
	Range      domain.Range
	Limit      int
	Bypass     bool
}

func (q *Query) Normalize() error {
	q.CategoryID = strings.TrimSpace(q.CategoryID)
	r, err := domain.ParseRange(string(q.Range))
	if err != nil {
		return err
	}
	q.Range = r
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

type Result struct {
	Items      []domain.Ranked `json:"items"`
	Profile    Profile         `json:"profile"`
	CategoryID string          `json:"category_id,omitempty"`
	Range      domain.Range    `json:"range"`
	ComputedAt time.Time       `json:"computed_at"`
	Cached     bool            `json:"cached"`
	Stale      bool            `json:"stale,omitempty"`
}

type Config struct {
	TTL      time.Duration
	PulseTTL time.Duration
	// StaleTTL keeps a fallback copy served when recomputation fails.
	StaleTTL time.Duration
	Compose  ComposeOptions
}

type Service struct {
	repo    EntityRepo
	curated CuratedSource
	agg     *engagement.Aggregator
	scorers map[Profile]*scoring.Scorer
	cache   Cache
	clock   Clock
	cfg     Config
}

func New(
	repo EntityRepo,
	curated CuratedSource,
	agg *engagement.Aggregator,
	public, pulse *scoring.Scorer,
	cache Cache,
	clock Clock,
	cfg Config,
) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.PulseTTL == 0 {
		cfg.PulseTTL = 2 * time.Minute
	}
	if cfg.StaleTTL == 0 {
		cfg.StaleTTL = time.Hour
	}
	return &Service{
		repo:    repo,
		curated: curated,
		agg:     agg,
		scorers: map[Profile]*scoring.Scorer{ProfileTrending: public, ProfilePulse: pulse},
		cache:   cache,
		clock:   clock,
		cfg:     cfg,
	}
}

func (s *Service) Trending(ctx context.Context, q Query) (Result, error) {
	return s.get(ctx, ProfileTrending, q)
}

// Pulse is the admin dashboard view, scored with the pulse weights.
func (s *Service) Pulse(ctx context.Context, q Query) (Result, error) {
	return s.get(ctx, ProfilePulse, q)
}

func (s *Service) get(ctx context.Context, p Profile, q Query) (Result, error) {
	if err := q.Normalize(); err != nil {
		return Result{}, err
	}
	key := cacheKeyRanking(p, q.CategoryID, q.Range, q.Limit)

	if s.cache != nil && !q.Bypass {
		var cached Result
		found, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			metrics.RecordRankingCache(string(p), "error")
			zlog.Warn().Err(err).Str("key", key).Msg("ranking cache get failed")
		case found:
			metrics.RecordRankingCache(string(p), "hit")
			cached.Cached = true
			return cached, nil
		default:
			metrics.RecordRankingCache(string(p), "miss")
		}
	} else if q.Bypass {
		metrics.RecordRankingCache(string(p), "bypass")
	}

	now := s.clock.Now()
	items, err := s.compute(ctx, p, q.CategoryID, q.Range, q.Limit, now)
	if err != nil {
		if stale, ok := s.staleFallback(ctx, key, err); ok {
			return stale, nil
		}
		return Result{}, err
	}

	res := Result{
		Items:      items,
		Profile:    p,
		CategoryID: q.CategoryID,
		Range:      q.Range,
		ComputedAt: now,
	}
	s.store(ctx, p, key, res)
	return res, nil
}

func (s *Service) staleFallback(ctx context.Context, key string, cause error) (Result, bool) {
	if s.cache == nil || !domain.IsDataUnavailable(cause) {
		return Result{}, false
	}
	var stale Result
	found, err := s.cache.Get(ctx, cacheKeyStale(key), &stale)
	if err != nil || !found {
		return Result{}, false
	}
	zlog.Warn().Err(cause).Str("key", key).Msg("serving stale ranking")
	stale.Cached = true
	stale.Stale = true
	return stale, true
}

// store is best effort; last writer wins.
func (s *Service) store(ctx context.Context, p Profile, key string, res Result) {
	if s.cache == nil {
		return
	}
	ttl := s.cfg.TTL
	if p == ProfilePulse {
		ttl = s.cfg.PulseTTL
	}
	if err := s.cache.Set(ctx, key, res, ttl); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("ranking cache set failed")
		return
	}
	if err := s.cache.Set(ctx, cacheKeyStale(key), res, s.cfg.StaleTTL); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("ranking stale set failed")
	}
}

// snapshot is one scoring pass over the rankable set.
type snapshot struct {
	current  []scoring.Scored
	previous map[string]float64
	curated  map[string]bool
}

func (s *Service) compute(ctx context.Context, p Profile, categoryID string, r domain.Range, limit int, now time.Time) ([]domain.Ranked, error) {
	snap, err := s.score(ctx, p, categoryID, r, now)
	if err != nil {
		return nil, err
	}
	return Compose(snap.current, snap.previous, snap.curated, s.composeOptions(limit)), nil
}

func (s *Service) score(ctx context.Context, p Profile, categoryID string, r domain.Range, now time.Time) (snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordRankingCompute(string(p), time.Since(start)) }()

	scorer := s.scorers[p]
	w := scorer.Weights()
	win := r.Window(now)

	entities, err := s.repo.ListRankable(ctx, categoryID, win.From)
	if err != nil {
		return snapshot{}, domain.Unavailable(err)
	}
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}

	cur, err := s.agg.Aggregate(ctx, ids, win, w.RecentWindowDays)
	if err != nil {
		return snapshot{}, err
	}

	prevNow := now.Add(-week)
	prev, err := s.agg.Aggregate(ctx, ids, r.Window(prevNow), w.RecentWindowDays)
	if err != nil {
		return snapshot{}, err
	}
	previous := make(map[string]float64, len(entities))
	for _, e := range entities {
		if e.CreatedAt.After(prevNow) {
			continue
		}
		g := prev[e.ID]
		previous[e.ID] = scorer.Score(e, g.Window, g.Lifetime, prevNow)
	}

	curated, err := s.curatedSet(ctx, now)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{current: scorer.ScoreAll(entities, cur, now), previous: previous, curated: curated}, nil
}

func (s *Service) composeOptions(limit int) ComposeOptions {
	opts := s.cfg.Compose
	opts.Limit = limit
	return opts
}

func (s *Service) curatedSet(ctx context.Context, now time.Time) (map[string]bool, error) {
	out := map[string]bool{}
	if s.curated == nil {
		return out, nil
	}
	ids, err := s.curated.FeaturedListIDs(ctx, domain.WeekStart(now))
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Recompute warms the default-limit snapshot of every profile, scope and
// range. Each profile and range is scored once over all categories and then
// split per category. Snapshots are full overwrites, so overlapping runs
// converge.
func (s *Service) Recompute(ctx context.Context) (int, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return 0, domain.Unavailable(err)
	}

	var errs []error
	written := 0
	for _, p := range []Profile{ProfileTrending, ProfilePulse} {
		for _, r := range []domain.Range{domain.RangeLast7Days, domain.RangeLast30Days} {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			now := s.clock.Now()
			snap, err := s.score(ctx, p, "", r, now)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			opts := s.composeOptions(defaultLimit)
			byCategory := ComposeByCategory(snap.current, snap.previous, snap.curated, opts)

			s.store(ctx, p, cacheKeyRanking(p, "", r, defaultLimit), Result{
				Items:      Compose(snap.current, snap.previous, snap.curated, opts),
				Profile:    p,
				Range:      r,
				ComputedAt: now,
			})
			written++
			for _, c := range cats {
				items := byCategory[c.ID]
				if items == nil {
					items = []domain.Ranked{}
				}
				s.store(ctx, p, cacheKeyRanking(p, c.ID, r, defaultLimit), Result{
					Items:      items,
					Profile:    p,
					CategoryID: c.ID,
					Range:      r,
					ComputedAt: now,
				})
				written++
			}
		}
	}
	return written, errors.Join(errs...)
}

// Invalidate drops every cached snapshot for the category, both profiles,
// stale fallbacks included. The global scope is left to expire on its TTL so
// steady traffic does not keep evicting it.
func (s *Service) Invalidate(ctx context.Context, categoryID string) error {
	if s.cache == nil || categoryID == "" {
		return nil
	}
	var errs []error
	for _, p := range []Profile{ProfileTrending, ProfilePulse} {
		errs = append(errs, s.cache.DeletePrefix(ctx, cacheKeyScopePrefix(p, categoryID)))
	}
	return errors.Join(errs...)
}
