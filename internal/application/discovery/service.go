package discovery

import (
	"context"
	"sort"
	"strings"

	"github.com/baechuer/curation-service/internal/application/ranking"
	"github.com/baechuer/curation-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type TrendingSource interface {
	Trending(ctx context.Context, q ranking.Query) (ranking.Result, error)
}

type AffinitySource interface {
	Get(ctx context.Context, userID string) (map[string]float64, error)
}

type Config struct {
	// MaxBoost caps the affinity boost as a fraction of the base score.
	MaxBoost float64
	// Candidates is how many trending entries feed the rerank.
	Candidates int
	Range      domain.Range
}

func DefaultConfig() Config {
	return Config{MaxBoost: 0.5, Candidates: 100, Range: domain.RangeLast30Days}
}

type Service struct {
	trending TrendingSource
	affinity AffinitySource
	cfg      Config
}

func New(trending TrendingSource, affinity AffinitySource, cfg Config) *Service {
	if cfg.MaxBoost < 0 {
		cfg.MaxBoost = 0
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 100
	}
	if cfg.Range == "" {
		cfg.Range = domain.RangeLast30Days
	}
	return &Service{trending: trending, affinity: affinity, cfg: cfg}
}

// ForYou reranks trending lists by the viewer's category affinity. Anonymous
// viewers, or viewers without affinity rows, get plain trending order.
// The viewer's own lists are skipped.
func (s *Service) ForYou(ctx context.Context, userID string, limit int) ([]domain.Ranked, error) {
	limit = clampLimit(limit)
	userID = strings.TrimSpace(userID)

	cands, prefs, err := s.candidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Ranked, 0, len(cands))
	for _, c := range cands {
		if userID != "" && c.Entity.OwnerID == userID {
			continue
		}
		c.Score += s.boost(c.Score, prefs[c.Entity.CategoryID])
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].Entity.CreatedAt.Equal(out[j].Entity.CreatedAt) {
			return out[i].Entity.CreatedAt.After(out[j].Entity.CreatedAt)
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Creators sums affinity-weighted scores of trending lists per owner.
func (s *Service) Creators(ctx context.Context, userID string, limit int) ([]domain.CreatorScore, error) {
	limit = clampLimit(limit)
	userID = strings.TrimSpace(userID)

	cands, prefs, err := s.candidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	byOwner := map[string]*domain.CreatorScore{}
	for _, c := range cands {
		owner := c.Entity.OwnerID
		if owner == "" || owner == userID {
			continue
		}
		cs, ok := byOwner[owner]
		if !ok {
			cs = &domain.CreatorScore{OwnerID: owner}
			byOwner[owner] = cs
		}
		cs.Score += c.Score + s.boost(c.Score, prefs[c.Entity.CategoryID])
		cs.Lists++
	}

	out := make([]domain.CreatorScore, 0, len(byOwner))
	for _, cs := range byOwner {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].OwnerID < out[j].OwnerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) candidates(ctx context.Context, userID string) ([]domain.Ranked, map[string]float64, error) {
	res, err := s.trending.Trending(ctx, ranking.Query{Range: s.cfg.Range, Limit: s.cfg.Candidates})
	if err != nil {
		return nil, nil, err
	}

	var prefs map[string]float64
	if userID != "" && s.affinity != nil {
		prefs, err = s.affinity.Get(ctx, userID)
		if err != nil {
			// Personalisation is optional; fall back to plain trending.
			zlog.Warn().Err(err).Str("user_id", userID).Msg("affinity lookup failed")
			prefs = nil
		}
	}
	return res.Items, prefs, nil
}

// boost is score*MaxBoost*affinity, never more than score*MaxBoost.
func (s *Service) boost(score, affinity float64) float64 {
	if score <= 0 || affinity <= 0 {
		return 0
	}
	b := score * s.cfg.MaxBoost * affinity
	if limit := score * s.cfg.MaxBoost; b > limit {
		b = limit
	}
	return b
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
