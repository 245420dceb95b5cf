package discovery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/curation-service/internal/application/discovery"
	"github.com/baechuer/curation-service/internal/application/ranking"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTrending struct {
	items []domain.Ranked
	err   error
	got   ranking.Query
}

func (s *stubTrending) Trending(_ context.Context, q ranking.Query) (ranking.Result, error) {
	s.got = q
	return ranking.Result{Items: s.items}, s.err
}

type stubAffinity struct {
	prefs map[string]float64
	err   error
}

func (s stubAffinity) Get(context.Context, string) (map[string]float64, error) { return s.prefs, s.err }

var created = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func item(id, cat, owner string, score float64) domain.Ranked {
	return domain.Ranked{
		Entity: domain.Entity{ID: id, CategoryID: cat, OwnerID: owner, CreatedAt: created},
		Score:  score,
	}
}

func trendingFixture() *stubTrending {
	return &stubTrending{items: []domain.Ranked{
		item("l1", "movies", "alice", 100),
		item("l2", "cafes", "bob", 80),
		item("l3", "cafes", "me", 75),
		item("l4", "books", "alice", 10),
	}}
}

func TestForYou_AffinityReranks(t *testing.T) {
	tr := trendingFixture()
	svc := discovery.New(tr, stubAffinity{prefs: map[string]float64{"cafes": 1}}, discovery.DefaultConfig())

	got, err := svc.ForYou(context.Background(), "me", 10)
	require.NoError(t, err)
	require.Len(t, got, 3, "own list excluded")

	// l2: 80 * 1.5 = 120 beats l1: 100
	assert.Equal(t, "l2", got[0].Entity.ID)
	assert.InDelta(t, 120.0, got[0].Score, 1e-9)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "l1", got[1].Entity.ID)
	assert.Equal(t, domain.RangeLast30Days, tr.got.Range)
}

func TestForYou_BoostCappedAtHalf(t *testing.T) {
	svc := discovery.New(trendingFixture(), stubAffinity{prefs: map[string]float64{"books": 5}}, discovery.DefaultConfig())

	got, err := svc.ForYou(context.Background(), "someone", 10)
	require.NoError(t, err)
	for _, r := range got {
		if r.Entity.ID == "l4" {
			assert.InDelta(t, 15.0, r.Score, 1e-9)
		}
	}
}

func TestForYou_AnonymousIsPlainTrending(t *testing.T) {
	svc := discovery.New(trendingFixture(), stubAffinity{prefs: map[string]float64{"cafes": 1}}, discovery.DefaultConfig())

	got, err := svc.ForYou(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "l1", got[0].Entity.ID)
	assert.Equal(t, 100.0, got[0].Score)
}

func TestForYou_AffinityFailureFallsBack(t *testing.T) {
	svc := discovery.New(trendingFixture(), stubAffinity{err: errors.New("down")}, discovery.DefaultConfig())

	got, err := svc.ForYou(context.Background(), "me", 10)
	require.NoError(t, err)
	assert.Equal(t, "l1", got[0].Entity.ID)
}

func TestForYou_TrendingFailurePropagates(t *testing.T) {
	tr := &stubTrending{err: domain.ErrDataUnavailable(errors.New("db"))}
	svc := discovery.New(tr, nil, discovery.DefaultConfig())

	_, err := svc.ForYou(context.Background(), "me", 10)
	assert.True(t, domain.IsDataUnavailable(err))
}

func TestCreators(t *testing.T) {
	svc := discovery.New(trendingFixture(), stubAffinity{prefs: map[string]float64{"cafes": 1}}, discovery.DefaultConfig())

	got, err := svc.Creators(context.Background(), "me", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// bob: 80*1.5 = 120; alice: 100 + 10 = 110
	assert.Equal(t, "bob", got[0].OwnerID)
	assert.InDelta(t, 120.0, got[0].Score, 1e-9)
	assert.Equal(t, "alice", got[1].OwnerID)
	assert.Equal(t, 2, got[1].Lists)
}
