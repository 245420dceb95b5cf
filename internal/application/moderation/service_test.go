package moderation_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/curation-service/internal/application/moderation"
	"github.com/baechuer/curation-service/internal/audit"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) CreateCase(ctx context.Context, c domain.ModerationCase, e domain.AuditEntry) error {
	return m.Called(ctx, c, e).Error(0)
}
func (m *MockRepo) GetCase(ctx context.Context, id string) (domain.ModerationCase, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ModerationCase), args.Error(1)
}
func (m *MockRepo) ListCases(ctx context.Context, f domain.CaseFilter) ([]domain.ModerationCase, int, error) {
	args := m.Called(ctx, f)
	var items []domain.ModerationCase
	if v := args.Get(0); v != nil {
		items = v.([]domain.ModerationCase)
	}
	return items, args.Int(1), args.Error(2)
}
func (m *MockRepo) UpdateCase(ctx context.Context, c domain.ModerationCase, expected domain.CaseStatus, e domain.AuditEntry) error {
	return m.Called(ctx, c, expected, e).Error(0)
}
func (m *MockRepo) ListAudit(ctx context.Context, f moderation.AuditFilter) ([]domain.AuditEntry, int, error) {
	args := m.Called(ctx, f)
	var items []domain.AuditEntry
	if v := args.Get(0); v != nil {
		items = v.([]domain.AuditEntry)
	}
	return items, args.Int(1), args.Error(2)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var (
	now       = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	moderator = domain.Actor{ID: "mod-1", Role: "moderator"}
	admin     = domain.Actor{ID: "admin-1", Role: "admin"}
	user      = domain.Actor{ID: "u-1", Role: "user"}
)

func newService(repo *MockRepo) (*moderation.Service, *bytes.Buffer) {
	var buf bytes.Buffer
	return moderation.New(repo, audit.New(zerolog.New(&buf)), fixedClock{now}), &buf
}

func TestOpen_DefaultsToSystemReporter(t *testing.T) {
	repo := new(MockRepo)
	repo.On("CreateCase", mock.Anything,
		mock.MatchedBy(func(c domain.ModerationCase) bool {
			return c.Status == domain.CaseOpen && c.ReporterID == moderation.SystemActor && c.TargetID == "c-1"
		}),
		mock.MatchedBy(func(e domain.AuditEntry) bool {
			return e.Action == moderation.ActionCaseOpened && e.TargetType == domain.TargetCase && e.Meta["reason"] == "link_review"
		}),
	).Return(nil)
	svc, buf := newService(repo)

	c, err := svc.Open(context.Background(), moderation.OpenInput{
		TargetType: domain.TargetComment, TargetID: "c-1", Reason: "link_review",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, now, c.CreatedAt)
	assert.Contains(t, buf.String(), `"action":"case_opened"`)
	repo.AssertExpectations(t)
}

func TestOpen_Validation(t *testing.T) {
	svc, _ := newService(new(MockRepo))

	_, err := svc.Open(context.Background(), moderation.OpenInput{TargetType: "moderation_case", TargetID: "x", Reason: "r"})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = svc.Open(context.Background(), moderation.OpenInput{TargetType: domain.TargetList, Reason: "spam"})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestList_RequiresModerator(t *testing.T) {
	repo := new(MockRepo)
	svc, _ := newService(repo)

	_, err := svc.List(context.Background(), user, domain.CaseFilter{})
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
	repo.AssertNotCalled(t, "ListCases", mock.Anything, mock.Anything)
}

func TestList_NormalizesPaging(t *testing.T) {
	repo := new(MockRepo)
	resolved := true
	repo.On("ListCases", mock.Anything, domain.CaseFilter{Resolved: &resolved, Page: 1, PageSize: 100}).
		Return(nil, 0, nil)
	svc, _ := newService(repo)

	page, err := svc.List(context.Background(), moderator, domain.CaseFilter{Resolved: &resolved, PageSize: 500})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 100, page.PageSize)
	repo.AssertExpectations(t)
}

func TestList_InvalidStatus(t *testing.T) {
	svc, _ := newService(new(MockRepo))
	bad := domain.CaseStatus("closed")
	_, err := svc.List(context.Background(), moderator, domain.CaseFilter{Status: &bad})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestTransition_WritesAuditEntry(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").
		Return(domain.ModerationCase{ID: "case-1", Status: domain.CaseInReview}, nil)
	repo.On("UpdateCase", mock.Anything,
		mock.MatchedBy(func(c domain.ModerationCase) bool { return c.Status == domain.CaseResolved && c.UpdatedAt.Equal(now) }),
		domain.CaseInReview,
		mock.MatchedBy(func(e domain.AuditEntry) bool {
			return e.ActorID == "mod-1" && e.Action == moderation.ActionCaseStatus &&
				e.Meta["from"] == "in_review" && e.Meta["to"] == "resolved" && e.Meta["note"] == "spam removed"
		}),
	).Return(nil)
	svc, buf := newService(repo)

	c, err := svc.Transition(context.Background(), moderator, "case-1", domain.CaseResolved, " spam removed ")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseResolved, c.Status)
	assert.Contains(t, buf.String(), `"action":"case_transitioned"`)
	repo.AssertExpectations(t)
}

func TestTransition_IllegalMove(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").
		Return(domain.ModerationCase{ID: "case-1", Status: domain.CaseResolved}, nil)
	svc, _ := newService(repo)

	_, err := svc.Transition(context.Background(), moderator, "case-1", domain.CaseDismissed, "")
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
	repo.AssertNotCalled(t, "UpdateCase", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_ReopenResolved(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").
		Return(domain.ModerationCase{ID: "case-1", Status: domain.CaseResolved}, nil)
	repo.On("UpdateCase", mock.Anything, mock.Anything, domain.CaseResolved, mock.Anything).Return(nil)
	svc, _ := newService(repo)

	c, err := svc.Transition(context.Background(), admin, "case-1", domain.CaseOpen, "")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseOpen, c.Status)
}

func TestTransition_LostRace(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").
		Return(domain.ModerationCase{ID: "case-1", Status: domain.CaseOpen}, nil)
	repo.On("UpdateCase", mock.Anything, mock.Anything, domain.CaseOpen, mock.Anything).
		Return(domain.ErrInvalidState("case changed concurrently"))
	svc, _ := newService(repo)

	_, err := svc.Transition(context.Background(), moderator, "case-1", domain.CaseInReview, "")
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
}

func TestAssign(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").
		Return(domain.ModerationCase{ID: "case-1", Status: domain.CaseOpen}, nil)
	repo.On("UpdateCase", mock.Anything,
		mock.MatchedBy(func(c domain.ModerationCase) bool { return c.AssigneeID != nil && *c.AssigneeID == "mod-2" }),
		domain.CaseOpen,
		mock.MatchedBy(func(e domain.AuditEntry) bool { return e.Action == moderation.ActionCaseAssigned && e.Meta["to"] == "mod-2" }),
	).Return(nil)
	svc, _ := newService(repo)

	c, err := svc.Assign(context.Background(), moderator, "case-1", "mod-2")
	require.NoError(t, err)
	require.NotNil(t, c.AssigneeID)
	repo.AssertExpectations(t)
}

func TestAssign_TerminalCase(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").
		Return(domain.ModerationCase{ID: "case-1", Status: domain.CaseDismissed}, nil)
	svc, _ := newService(repo)

	_, err := svc.Assign(context.Background(), moderator, "case-1", "mod-2")
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
}

func TestAuditLog_AdminOnly(t *testing.T) {
	repo := new(MockRepo)
	repo.On("ListAudit", mock.Anything, moderation.AuditFilter{Page: 1, PageSize: 50}).
		Return([]domain.AuditEntry{{ID: "a1"}}, 1, nil)
	svc, _ := newService(repo)

	_, err := svc.AuditLog(context.Background(), moderator, moderation.AuditFilter{})
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

	page, err := svc.AuditLog(context.Background(), admin, moderation.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestGet_StoreErrorIsDataUnavailable(t *testing.T) {
	repo := new(MockRepo)
	repo.On("GetCase", mock.Anything, "case-1").Return(domain.ModerationCase{}, errors.New("conn reset"))
	svc, _ := newService(repo)

	_, err := svc.Get(context.Background(), moderator, "case-1")
	assert.True(t, domain.IsDataUnavailable(err))
}
