package antiabuse

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/domain"
)

// SubmissionLog is the append-only record of accepted submissions.
type SubmissionLog interface {
	// CountSince counts the actor's submissions created strictly after since.
	CountSince(ctx context.Context, actorID string, since time.Time) (int, error)
	// HashExists reports whether the actor already posted hash on the target
	// strictly after since.
	HashExists(ctx context.Context, actorID string, targetType domain.TargetType, targetID, hash string, since time.Time) (bool, error)
}

type Reputation interface {
	Reputation(ctx context.Context, actorID string) (int, error)
}

type Limits struct {
	ShortWindow     time.Duration
	ShortCap        int
	LongWindow      time.Duration
	LongCap         int
	DuplicateWindow time.Duration
	MinLength       int
	// ShadowBanBelow hides content from actors whose reputation is strictly lower.
	ShadowBanBelow int
}

func DefaultLimits() Limits {
	return Limits{
		ShortWindow:     time.Minute,
		ShortCap:        3,
		LongWindow:      24 * time.Hour,
		LongCap:         50,
		DuplicateWindow: 24 * time.Hour,
		MinLength:       2,
		ShadowBanBelow:  -10,
	}
}

const (
	msgRateShort = "You're posting too fast. Slow down and try again in a minute."
	msgRateLong  = "You've reached today's posting limit. Come back tomorrow."
	msgDuplicate = "You already posted this here."
)

// Filter gates comment and suggestion writes.
// Check order: rate, duplicate, content, shadow-ban.
type Filter struct {
	log    SubmissionLog
	rep    Reputation
	limits Limits
}

func NewFilter(log SubmissionLog, rep Reputation, limits Limits) *Filter {
	return &Filter{log: log, rep: rep, limits: limits}
}

func (f *Filter) Limits() Limits { return f.limits }

// Check runs every check and stops at the first rejection. Shadow-banned
// actors are accepted with Hidden set.
func (f *Filter) Check(ctx context.Context, sub domain.Submission) (domain.Verdict, error) {
	if strings.TrimSpace(sub.ActorID) == "" {
		return domain.Verdict{}, domain.ErrUnauthorized("sign in to post")
	}

	if err := f.CheckRate(ctx, sub.ActorID, sub.At); err != nil {
		return domain.Verdict{}, err
	}

	hash := Hash(sub.Body)
	if err := f.CheckDuplicate(ctx, sub, hash); err != nil {
		return domain.Verdict{}, err
	}

	content, err := CheckContent(sub.Body, f.limits.MinLength)
	if err != nil {
		return domain.Verdict{}, err
	}

	hidden, err := f.ShadowBanned(ctx, sub.ActorID)
	if err != nil {
		return domain.Verdict{}, err
	}

	return domain.Verdict{
		ContentHash:  hash,
		ShouldReview: content.ShouldReview,
		Hidden:       hidden,
		URL:          content.URL,
	}, nil
}

// CheckRate is a sliding-window count over the submission log.
func (f *Filter) CheckRate(ctx context.Context, actorID string, at time.Time) error {
	windows := []struct {
		span   time.Duration
		cap    int
		reason domain.RejectReason
		msg    string
	}{
		{f.limits.ShortWindow, f.limits.ShortCap, domain.RejectRateShort, msgRateShort},
		{f.limits.LongWindow, f.limits.LongCap, domain.RejectRateLong, msgRateLong},
	}
	for _, w := range windows {
		if w.cap <= 0 || w.span <= 0 {
			continue
		}
		n, err := f.log.CountSince(ctx, actorID, at.Add(-w.span))
		if err != nil {
			return domain.Unavailable(err)
		}
		if n >= w.cap {
			return withRetryAfter(domain.ErrRejected(w.reason, w.msg), w.span)
		}
	}
	return nil
}

func (f *Filter) CheckDuplicate(ctx context.Context, sub domain.Submission, hash string) error {
	if f.limits.DuplicateWindow <= 0 {
		return nil
	}
	dup, err := f.log.HashExists(ctx, sub.ActorID, sub.TargetType, sub.TargetID, hash, sub.At.Add(-f.limits.DuplicateWindow))
	if err != nil {
		return domain.Unavailable(err)
	}
	if dup {
		return domain.ErrRejected(domain.RejectDuplicate, msgDuplicate)
	}
	return nil
}

func (f *Filter) ShadowBanned(ctx context.Context, actorID string) (bool, error) {
	if f.rep == nil {
		return false, nil
	}
	score, err := f.rep.Reputation(ctx, actorID)
	if err != nil {
		return false, domain.Unavailable(err)
	}
	return score < f.limits.ShadowBanBelow, nil
}

func withRetryAfter(err error, window time.Duration) error {
	if ae, ok := err.(*domain.AppError); ok {
		ae.Meta["retry_after_seconds"] = strconv.Itoa(int(window.Seconds()))
	}
	return err
}
