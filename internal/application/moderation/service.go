package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/audit"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/google/uuid"
)

type Clock interface{ Now() time.Time }

type Repo interface {
	CreateCase(ctx context.Context, c domain.ModerationCase, entry domain.AuditEntry) error
	GetCase(ctx context.Context, id string) (domain.ModerationCase, error)
	ListCases(ctx context.Context, f domain.CaseFilter) ([]domain.ModerationCase, int, error)
	// UpdateCase persists status, assignee and updated_at and appends entry in
	// one transaction, only if the stored status still equals expected.
	// A lost race returns ErrInvalidState.
	UpdateCase(ctx context.Context, c domain.ModerationCase, expected domain.CaseStatus, entry domain.AuditEntry) error
	ListAudit(ctx context.Context, f AuditFilter) ([]domain.AuditEntry, int, error)
}

type AuditFilter struct {
	TargetType domain.TargetType
	TargetID   string
	ActorID    string
	Page       int
	PageSize   int
}

func (f *AuditFilter) Normalize() {
	f.TargetID = strings.TrimSpace(f.TargetID)
	f.ActorID = strings.TrimSpace(f.ActorID)
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	if f.PageSize > 200 {
		f.PageSize = 200
	}
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// SystemActor opens cases raised by automated checks.
const SystemActor = "system"

const (
	ActionCaseOpened   = "case.opened"
	ActionCaseStatus   = "case.status_changed"
	ActionCaseAssigned = "case.assigned"
)

type Service struct {
	repo  Repo
	audit *audit.Logger
	clock Clock
}

func New(repo Repo, auditLog *audit.Logger, clock Clock) *Service {
	return &Service{repo: repo, audit: auditLog, clock: clock}
}

type OpenInput struct {
	TargetType domain.TargetType
	TargetID   string
	ReporterID string
	Reason     string
	Detail     string
}

func (s *Service) Open(ctx context.Context, in OpenInput) (domain.ModerationCase, error) {
	in.TargetID = strings.TrimSpace(in.TargetID)
	in.Reason = strings.TrimSpace(in.Reason)
	if !in.TargetType.Reportable() {
		return domain.ModerationCase{}, domain.ErrValidationMeta("invalid case", map[string]string{
			"target_type": "must be one of: comment, suggestion, list, user",
		})
	}
	if in.TargetID == "" || in.Reason == "" {
		return domain.ModerationCase{}, domain.ErrValidation("target_id and reason are required")
	}
	reporter := strings.TrimSpace(in.ReporterID)
	if reporter == "" {
		reporter = SystemActor
	}

	now := s.clock.Now()
	c := domain.ModerationCase{
		ID:         uuid.NewString(),
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		ReporterID: reporter,
		Reason:     in.Reason,
		Detail:     strings.TrimSpace(in.Detail),
		Status:     domain.CaseOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	entry := s.entry(reporter, ActionCaseOpened, c.ID, now, map[string]string{
		"target_type": string(c.TargetType),
		"target_id":   c.TargetID,
		"reason":      c.Reason,
	})
	if err := s.repo.CreateCase(ctx, c, entry); err != nil {
		return domain.ModerationCase{}, domain.Unavailable(err)
	}
	if s.audit != nil {
		s.audit.CaseOpened(ctx, c)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (domain.ModerationCase, error) {
	if !actor.AtLeast(domain.RoleModerator) {
		return domain.ModerationCase{}, domain.ErrForbidden("moderator role required")
	}
	c, err := s.repo.GetCase(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ModerationCase{}, domain.Unavailable(err)
	}
	return c, nil
}

// List is the moderation queue. resolved=true means resolved or dismissed.
func (s *Service) List(ctx context.Context, actor domain.Actor, f domain.CaseFilter) (Page[domain.ModerationCase], error) {
	if !actor.AtLeast(domain.RoleModerator) {
		return Page[domain.ModerationCase]{}, domain.ErrForbidden("moderator role required")
	}
	f.Normalize()
	if f.Status != nil && !f.Status.Valid() {
		return Page[domain.ModerationCase]{}, domain.ErrValidationMeta("invalid query param", map[string]string{
			"status": "must be one of: open, in_review, resolved, dismissed",
		})
	}
	items, total, err := s.repo.ListCases(ctx, f)
	if err != nil {
		return Page[domain.ModerationCase]{}, domain.Unavailable(err)
	}
	if items == nil {
		items = []domain.ModerationCase{}
	}
	return Page[domain.ModerationCase]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (s *Service) Transition(ctx context.Context, actor domain.Actor, id string, to domain.CaseStatus, note string) (domain.ModerationCase, error) {
	if !actor.AtLeast(domain.RoleModerator) {
		return domain.ModerationCase{}, domain.ErrForbidden("moderator role required")
	}
	if !to.Valid() {
		return domain.ModerationCase{}, domain.ErrValidationMeta("invalid status", map[string]string{
			"status": "must be one of: open, in_review, resolved, dismissed",
		})
	}
	c, err := s.repo.GetCase(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ModerationCase{}, domain.Unavailable(err)
	}
	from := c.Status
	if !domain.CanTransition(from, to) {
		return domain.ModerationCase{}, domain.ErrInvalidState("cannot move case from " + string(from) + " to " + string(to))
	}

	now := s.clock.Now()
	c.Status = to
	c.UpdatedAt = now
	meta := map[string]string{"from": string(from), "to": string(to)}
	if note = strings.TrimSpace(note); note != "" {
		meta["note"] = note
	}
	if err := s.repo.UpdateCase(ctx, c, from, s.entry(actor.ID, ActionCaseStatus, c.ID, now, meta)); err != nil {
		return domain.ModerationCase{}, domain.Unavailable(err)
	}
	if s.audit != nil {
		s.audit.CaseTransitioned(ctx, c.ID, actor.ID, from, to)
	}
	return c, nil
}

// Assign sets or clears (empty assigneeID) the case owner. Terminal cases
// cannot be reassigned.
func (s *Service) Assign(ctx context.Context, actor domain.Actor, id, assigneeID string) (domain.ModerationCase, error) {
	if !actor.AtLeast(domain.RoleModerator) {
		return domain.ModerationCase{}, domain.ErrForbidden("moderator role required")
	}
	c, err := s.repo.GetCase(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.ModerationCase{}, domain.Unavailable(err)
	}
	if c.Status.Terminal() {
		return domain.ModerationCase{}, domain.ErrInvalidState("case is " + string(c.Status))
	}

	assigneeID = strings.TrimSpace(assigneeID)
	prev := ""
	if c.AssigneeID != nil {
		prev = *c.AssigneeID
	}
	if assigneeID == "" {
		c.AssigneeID = nil
	} else {
		c.AssigneeID = &assigneeID
	}
	now := s.clock.Now()
	c.UpdatedAt = now

	entry := s.entry(actor.ID, ActionCaseAssigned, c.ID, now, map[string]string{"from": prev, "to": assigneeID})
	if err := s.repo.UpdateCase(ctx, c, c.Status, entry); err != nil {
		return domain.ModerationCase{}, domain.Unavailable(err)
	}
	if s.audit != nil {
		s.audit.CaseAssigned(ctx, c.ID, actor.ID, assigneeID)
	}
	return c, nil
}

func (s *Service) AuditLog(ctx context.Context, actor domain.Actor, f AuditFilter) (Page[domain.AuditEntry], error) {
	if !actor.AtLeast(domain.RoleAdmin) {
		return Page[domain.AuditEntry]{}, domain.ErrForbidden("admin role required")
	}
	f.Normalize()
	items, total, err := s.repo.ListAudit(ctx, f)
	if err != nil {
		return Page[domain.AuditEntry]{}, domain.Unavailable(err)
	}
	if items == nil {
		items = []domain.AuditEntry{}
	}
	return Page[domain.AuditEntry]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (s *Service) entry(actorID, action, caseID string, at time.Time, meta map[string]string) domain.AuditEntry {
	return domain.AuditEntry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: domain.TargetCase,
		TargetID:   caseID,
		Meta:       meta,
		CreatedAt:  at,
	}
}
