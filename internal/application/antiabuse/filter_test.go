package antiabuse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/curation-service/internal/application/antiabuse"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLog struct {
	records []domain.SubmissionRecord
	err     error
}

func (l *memLog) CountSince(_ context.Context, actorID string, since time.Time) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	n := 0
	for _, r := range l.records {
		if r.ActorID == actorID && r.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (l *memLog) HashExists(_ context.Context, actorID string, tt domain.TargetType, targetID, hash string, since time.Time) (bool, error) {
	for _, r := range l.records {
		if r.ActorID == actorID && r.TargetType == tt && r.TargetID == targetID &&
			r.ContentHash == hash && r.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

// submit runs the filter and appends accepted submissions, as the write path does.
func (l *memLog) submit(ctx context.Context, f *antiabuse.Filter, sub domain.Submission) (domain.Verdict, error) {
	v, err := f.Check(ctx, sub)
	if err == nil {
		l.records = append(l.records, domain.SubmissionRecord{
			ActorID: sub.ActorID, TargetType: sub.TargetType, TargetID: sub.TargetID,
			ContentHash: v.ContentHash, CreatedAt: sub.At,
		})
	}
	return v, err
}

type fixedReputation map[string]int

func (r fixedReputation) Reputation(_ context.Context, actorID string) (int, error) {
	return r[actorID], nil
}

var t0 = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func sub(body string, at time.Time) domain.Submission {
	return domain.Submission{ActorID: "u1", TargetType: domain.TargetComment, TargetID: "list-1", Body: body, At: at}
}

func TestFilter_RateLimitBoundary(t *testing.T) {
	ctx := context.Background()
	log := &memLog{}
	f := antiabuse.NewFilter(log, nil, antiabuse.DefaultLimits())

	for i := 0; i < 3; i++ {
		_, err := log.submit(ctx, f, sub("comment number "+string(rune('a'+i)), t0.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err, "submission %d", i+1)
	}

	_, err := log.submit(ctx, f, sub("one more thought", t0.Add(3*time.Second)))
	assert.Equal(t, domain.RejectRateShort, reasonOf(t, err))
	var ae *domain.AppError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "Slow down")
	assert.Equal(t, "60", ae.Meta["retry_after_seconds"])

	_, err = log.submit(ctx, f, sub("after the window", t0.Add(61*time.Second)))
	assert.NoError(t, err)
}

func TestFilter_LongWindowCap(t *testing.T) {
	ctx := context.Background()
	log := &memLog{}
	limits := antiabuse.DefaultLimits()
	for i := 0; i < limits.LongCap; i++ {
		log.records = append(log.records, domain.SubmissionRecord{
			ActorID: "u1", CreatedAt: t0.Add(-time.Duration(i+2) * time.Minute),
		})
	}
	f := antiabuse.NewFilter(log, nil, limits)

	_, err := f.Check(ctx, sub("fresh words", t0))
	assert.Equal(t, domain.RejectRateLong, reasonOf(t, err))
	var ae *domain.AppError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "Come back tomorrow")
}

func TestFilter_DuplicateSuppression(t *testing.T) {
	ctx := context.Background()
	log := &memLog{}
	f := antiabuse.NewFilter(log, nil, antiabuse.DefaultLimits())

	_, err := log.submit(ctx, f, sub("Best coffee in town", t0))
	require.NoError(t, err)

	_, err = log.submit(ctx, f, sub("  best COFFEE in town ☕ ", t0.Add(5*time.Minute)))
	assert.Equal(t, domain.RejectDuplicate, reasonOf(t, err))

	other := sub("Best coffee in town", t0.Add(6*time.Minute))
	other.TargetID = "list-2"
	_, err = log.submit(ctx, f, other)
	assert.NoError(t, err, "different target")

	_, err = log.submit(ctx, f, sub("Best coffee in town", t0.Add(24*time.Hour+time.Second)))
	assert.NoError(t, err, "after the duplicate window")
}

func TestFilter_OrderRateBeforeContent(t *testing.T) {
	ctx := context.Background()
	log := &memLog{}
	for i := 0; i < 3; i++ {
		log.records = append(log.records, domain.SubmissionRecord{ActorID: "u1", CreatedAt: t0.Add(-time.Second)})
	}
	f := antiabuse.NewFilter(log, nil, antiabuse.DefaultLimits())

	_, err := f.Check(ctx, sub("🔥", t0))
	assert.Equal(t, domain.RejectRateShort, reasonOf(t, err))
}

func TestFilter_LinkRules(t *testing.T) {
	ctx := context.Background()
	f := antiabuse.NewFilter(&memLog{}, nil, antiabuse.DefaultLimits())

	_, err := f.Check(ctx, sub("https://a.example https://b.example", t0))
	assert.Equal(t, domain.RejectMultiLink, reasonOf(t, err))

	v, err := f.Check(ctx, sub("my writeup https://a.example/post", t0))
	require.NoError(t, err)
	assert.True(t, v.ShouldReview)
	assert.False(t, v.Hidden)
}

func TestFilter_ShadowBanHidesButAccepts(t *testing.T) {
	ctx := context.Background()
	rep := fixedReputation{"u1": -11, "u2": -10}
	f := antiabuse.NewFilter(&memLog{}, rep, antiabuse.DefaultLimits())

	v, err := f.Check(ctx, sub("perfectly normal words", t0))
	require.NoError(t, err)
	assert.True(t, v.Hidden)

	s := sub("perfectly normal words", t0)
	s.ActorID = "u2"
	v, err = f.Check(ctx, s)
	require.NoError(t, err)
	assert.False(t, v.Hidden, "threshold is exclusive")
}

func TestFilter_LogFailureIsDataUnavailable(t *testing.T) {
	f := antiabuse.NewFilter(&memLog{err: errors.New("timeout")}, nil, antiabuse.DefaultLimits())
	_, err := f.Check(context.Background(), sub("hello there", t0))
	assert.True(t, domain.IsDataUnavailable(err))
}

func TestFilter_AnonymousActor(t *testing.T) {
	f := antiabuse.NewFilter(&memLog{}, nil, antiabuse.DefaultLimits())
	s := sub("hello there", t0)
	s.ActorID = ""
	_, err := f.Check(context.Background(), s)
	assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
}
