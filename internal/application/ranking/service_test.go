package ranking_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baechuer/curation-service/internal/application/engagement"
	"github.com/baechuer/curation-service/internal/application/ranking"
	"github.com/baechuer/curation-service/internal/application/scoring"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeRepo struct {
	entities []domain.Entity
	cats     []domain.Category
	calls    int
}

func (f *fakeRepo) ListRankable(_ context.Context, categoryID string, _ time.Time) ([]domain.Entity, error) {
	f.calls++
	var out []domain.Entity
	for _, e := range f.entities {
		if categoryID == "" || e.CategoryID == categoryID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListCategories(context.Context) ([]domain.Category, error) { return f.cats, nil }

type fakeStore struct {
	now    time.Time
	counts map[string]domain.WindowCounts
	err    error
}

func (f *fakeStore) WindowCounts(_ context.Context, _ []string, w domain.Window, _ time.Time) (map[string]domain.WindowCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	if w.To.Equal(f.now) {
		return f.counts, nil
	}
	return map[string]domain.WindowCounts{}, nil
}

func (f *fakeStore) LifetimeCounters(context.Context, []string) (map[string]domain.Counters, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]domain.Counters{}, nil
}

type fakeCurated struct{ ids []string }

func (f fakeCurated) FeaturedListIDs(context.Context, time.Time) ([]string, error) { return f.ids, nil }

type memCache struct{ data map[string][]byte }

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, val any, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

var svcNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *ranking.Service
	repo  *fakeRepo
	store *fakeStore
	cache *memCache
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	created := svcNow.Add(-30 * 24 * time.Hour)
	repo := &fakeRepo{
		entities: []domain.Entity{
			{ID: "l1", CategoryID: "movies", CreatedAt: created, IsActive: true, IsPublic: true},
			{ID: "l2", CategoryID: "movies", CreatedAt: created, IsActive: true, IsPublic: true},
			{ID: "l3", CategoryID: "cafes", CreatedAt: created, IsActive: true, IsPublic: true},
		},
		cats: []domain.Category{{ID: "movies"}, {ID: "cafes"}},
	}
	store := &fakeStore{
		now: svcNow,
		counts: map[string]domain.WindowCounts{
			"l1": {Saves: 10, Likes: 4, Views: 100, RecentSaves: 10, LastActivityAt: svcNow.Add(-time.Hour)},
			"l2": {Saves: 2, Likes: 1, LastActivityAt: svcNow.Add(-time.Hour)},
			"l3": {Saves: 5, RecentSaves: 1, LastActivityAt: svcNow.Add(-time.Hour)},
		},
	}
	public, err := scoring.New(scoring.DefaultWeights())
	require.NoError(t, err)
	pulse, err := scoring.New(scoring.PulseWeights())
	require.NoError(t, err)

	cache := newMemCache()
	svc := ranking.New(repo, fakeCurated{ids: []string{"l3"}}, engagement.New(store), public, pulse,
		cache, fixedClock{svcNow}, ranking.Config{Compose: ranking.DefaultComposeOptions()})
	return fixture{svc: svc, repo: repo, store: store, cache: cache}
}

func TestTrending_CacheAside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Trending(ctx, ranking.Query{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, domain.RangeLast7Days, first.Range)
	require.Len(t, first.Items, 3)
	assert.Equal(t, "l1", first.Items[0].Entity.ID)
	assert.Contains(t, f.cache.data, "ranking:trending:global:last7days:20")

	second, err := f.svc.Trending(ctx, ranking.Query{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, f.repo.calls)
	assert.Equal(t, ids(first.Items), ids(second.Items))
}

func TestTrending_BypassRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Trending(ctx, ranking.Query{})
	require.NoError(t, err)
	res, err := f.svc.Trending(ctx, ranking.Query{Bypass: true})
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, 2, f.repo.calls)
}

func TestTrending_CuratedBadge(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Trending(context.Background(), ranking.Query{CategoryID: "cafes"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, domain.BadgeFeatured, res.Items[0].Badge)
}

func TestTrending_ServesStaleOnDataUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fresh, err := f.svc.Trending(ctx, ranking.Query{})
	require.NoError(t, err)

	// Primary entry expired; the database is down.
	delete(f.cache.data, "ranking:trending:global:last7days:20")
	f.store.err = errors.New("connection refused")

	res, err := f.svc.Trending(ctx, ranking.Query{})
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, ids(fresh.Items), ids(res.Items))
}

func TestTrending_DataUnavailableWithoutStale(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection refused")

	_, err := f.svc.Trending(context.Background(), ranking.Query{})
	require.Error(t, err)
	assert.True(t, domain.IsDataUnavailable(err))
}

func TestTrending_InvalidRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Trending(context.Background(), ranking.Query{Range: "yesterday"})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestPulse_UsesSeparateWeights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pub, err := f.svc.Trending(ctx, ranking.Query{Bypass: true})
	require.NoError(t, err)
	pulse, err := f.svc.Pulse(ctx, ranking.Query{Bypass: true})
	require.NoError(t, err)

	assert.Equal(t, ranking.ProfilePulse, pulse.Profile)
	assert.NotEqual(t, pub.Items[0].Score, pulse.Items[0].Score)
	assert.Contains(t, f.cache.data, "ranking:pulse:global:last7days:20")
}

func TestInvalidate_DropsCategoryOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, cat := range []string{"", "movies", "cafes"} {
		_, err := f.svc.Trending(ctx, ranking.Query{CategoryID: cat})
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.Invalidate(ctx, "movies"))

	assert.NotContains(t, f.cache.data, "ranking:trending:movies:last7days:20")
	assert.NotContains(t, f.cache.data, "ranking:trending:movies:last7days:20:stale")
	assert.Contains(t, f.cache.data, "ranking:trending:global:last7days:20")
	assert.Contains(t, f.cache.data, "ranking:trending:cafes:last7days:20")

	before := len(f.cache.data)
	require.NoError(t, f.svc.Invalidate(ctx, ""))
	assert.Len(t, f.cache.data, before)
}

func TestRecompute_WarmsEverySnapshot(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.Recompute(context.Background())
	require.NoError(t, err)
	// 2 profiles x (global + 2 categories) x 2 ranges
	assert.Equal(t, 12, n)
	assert.Contains(t, f.cache.data, "ranking:pulse:cafes:last30days:20")
	// one scoring pass per profile and range
	assert.Equal(t, 4, f.repo.calls)

	again, err := f.svc.Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n, again)
}

func TestRecompute_CategorySnapshotMatchesDirectCompute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Recompute(ctx)
	require.NoError(t, err)

	for _, cat := range []string{"movies", "cafes"} {
		warmed, err := f.svc.Trending(ctx, ranking.Query{CategoryID: cat})
		require.NoError(t, err)
		require.True(t, warmed.Cached)

		direct, err := f.svc.Trending(ctx, ranking.Query{CategoryID: cat, Bypass: true})
		require.NoError(t, err)
		assert.Equal(t, direct.Items, warmed.Items, cat)
	}
}
