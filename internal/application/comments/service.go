package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baechuer/curation-service/internal/application/antiabuse"
	"github.com/baechuer/curation-service/internal/application/moderation"
	"github.com/baechuer/curation-service/internal/audit"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/metrics"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const MaxBodyLength = 2000

type Clock interface{ Now() time.Time }

type Repo interface {
	ListExists(ctx context.Context, listID string) (bool, error)
	CategoryOf(ctx context.Context, listID string) (string, error)
	// Create stores the comment and appends its submission record in one transaction.
	Create(ctx context.Context, c domain.Comment, rec domain.SubmissionRecord) error
	// ListVisible returns the list's comments; filtered comments are only
	// included for their own author.
	ListVisible(ctx context.Context, listID, viewerID string, limit int) ([]domain.Comment, error)
}

type CaseOpener interface {
	Open(ctx context.Context, in moderation.OpenInput) (domain.ModerationCase, error)
}

type URLResolver interface {
	Resolve(ctx context.Context, raw string) (string, error)
}

// Invalidator drops cached rankings for one category.
type Invalidator interface {
	Invalidate(ctx context.Context, categoryID string) error
}

type Service struct {
	repo     Repo
	filter   *antiabuse.Filter
	cases    CaseOpener
	resolver URLResolver
	rankings Invalidator
	audit    *audit.Logger
	clock    Clock
}

func New(repo Repo, filter *antiabuse.Filter, cases CaseOpener, resolver URLResolver, rankings Invalidator, auditLog *audit.Logger, clock Clock) *Service {
	return &Service{repo: repo, filter: filter, cases: cases, resolver: resolver, rankings: rankings, audit: auditLog, clock: clock}
}

type SubmitInput struct {
	ActorID string
	ListID  string
	Body    string
}

// Submit gates a comment through the anti-abuse filter and stores it.
// Shadow-banned authors get a normal response; the row is stored filtered.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (domain.Comment, error) {
	in.ListID = strings.TrimSpace(in.ListID)
	if in.ListID == "" {
		return domain.Comment{}, domain.ErrValidation("list_id is required")
	}
	if utf8.RuneCountInString(in.Body) > MaxBodyLength {
		return domain.Comment{}, domain.ErrValidationMeta("invalid comment", map[string]string{
			"body": fmt.Sprintf("must be at most %d characters", MaxBodyLength),
		})
	}

	ok, err := s.repo.ListExists(ctx, in.ListID)
	if err != nil {
		return domain.Comment{}, domain.Unavailable(err)
	}
	if !ok {
		return domain.Comment{}, domain.ErrNotFound("list not found")
	}

	now := s.clock.Now()
	verdict, err := s.filter.Check(ctx, domain.Submission{
		ActorID:    in.ActorID,
		TargetType: domain.TargetComment,
		TargetID:   in.ListID,
		Body:       in.Body,
		At:         now,
	})
	if err != nil {
		s.recordRejection(ctx, in, err)
		return domain.Comment{}, err
	}

	c := domain.Comment{
		ID:           uuid.NewString(),
		ListID:       in.ListID,
		AuthorID:     in.ActorID,
		Body:         strings.TrimSpace(in.Body),
		ContentHash:  verdict.ContentHash,
		IsFiltered:   verdict.Hidden,
		ShouldReview: verdict.ShouldReview,
		CreatedAt:    now,
	}
	rec := domain.SubmissionRecord{
		ActorID:     in.ActorID,
		TargetType:  domain.TargetComment,
		TargetID:    in.ListID,
		ContentHash: verdict.ContentHash,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, c, rec); err != nil {
		return domain.Comment{}, domain.Unavailable(err)
	}

	if !c.IsFiltered {
		s.invalidate(ctx, c.ListID)
	}
	if verdict.ShouldReview {
		s.openLinkReview(ctx, c, verdict.URL)
	}

	outcome := "accepted"
	switch {
	case verdict.Hidden:
		outcome = "hidden"
	case verdict.ShouldReview:
		outcome = "review"
	}
	metrics.RecordSubmission(string(domain.TargetComment), outcome)
	if s.audit != nil {
		s.audit.SubmissionAccepted(ctx, in.ActorID, domain.TargetComment, in.ListID, verdict.ShouldReview, verdict.Hidden)
	}
	return c, nil
}

// invalidate refreshes the list's category after a counted comment. Best
// effort; the snapshot also expires on its TTL.
func (s *Service) invalidate(ctx context.Context, listID string) {
	if s.rankings == nil {
		return
	}
	cat, err := s.repo.CategoryOf(ctx, listID)
	if err != nil {
		zlog.Warn().Err(err).Str("list_id", listID).Msg("category lookup failed")
		return
	}
	if err := s.rankings.Invalidate(ctx, cat); err != nil {
		zlog.Warn().Err(err).Str("category_id", cat).Msg("ranking invalidation failed")
	}
}

// openLinkReview queues the comment for triage. The comment is already
// stored, so failures here are logged only.
func (s *Service) openLinkReview(ctx context.Context, c domain.Comment, link string) {
	if s.cases == nil {
		return
	}
	detail := "link: " + link
	if s.resolver != nil && link != "" {
		if final, err := s.resolver.Resolve(ctx, link); err != nil {
			zlog.Debug().Err(err).Str("url", link).Msg("link resolve failed")
		} else if final != link {
			detail += " -> " + final
		}
	}
	_, err := s.cases.Open(ctx, moderation.OpenInput{
		TargetType: domain.TargetComment,
		TargetID:   c.ID,
		ReporterID: moderation.SystemActor,
		Reason:     "link_review",
		Detail:     detail,
	})
	if err != nil {
		zlog.Error().Err(err).Str("comment_id", c.ID).Msg("open link review case failed")
	}
}

func (s *Service) recordRejection(ctx context.Context, in SubmitInput, err error) {
	var ae *domain.AppError
	if !errors.As(err, &ae) || ae.Code != domain.CodeRejected {
		return
	}
	reason := ae.Meta["reason"]
	metrics.RecordSubmission(string(domain.TargetComment), reason)
	if s.audit != nil {
		s.audit.SubmissionRejected(ctx, in.ActorID, domain.TargetComment, in.ListID, reason)
	}
}

func (s *Service) List(ctx context.Context, listID, viewerID string, limit int) ([]domain.Comment, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return nil, domain.ErrValidation("list_id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	items, err := s.repo.ListVisible(ctx, listID, viewerID, limit)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	if items == nil {
		items = []domain.Comment{}
	}
	return items, nil
}
