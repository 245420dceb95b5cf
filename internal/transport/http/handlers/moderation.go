package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/curation-service/internal/application/moderation"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/transport/http/dto"
	"github.com/baechuer/curation-service/internal/transport/http/middleware"
	"github.com/baechuer/curation-service/internal/transport/http/response"
	"github.com/baechuer/curation-service/internal/transport/http/validate"
)

type Moderation interface {
	Open(ctx context.Context, in moderation.OpenInput) (domain.ModerationCase, error)
	Get(ctx context.Context, actor domain.Actor, id string) (domain.ModerationCase, error)
	List(ctx context.Context, actor domain.Actor, f domain.CaseFilter) (moderation.Page[domain.ModerationCase], error)
	Transition(ctx context.Context, actor domain.Actor, id string, to domain.CaseStatus, note string) (domain.ModerationCase, error)
	Assign(ctx context.Context, actor domain.Actor, id, assigneeID string) (domain.ModerationCase, error)
	AuditLog(ctx context.Context, actor domain.Actor, f moderation.AuditFilter) (moderation.Page[domain.AuditEntry], error)
}

type ModerationHandler struct {
	svc Moderation
}

func NewModerationHandler(svc Moderation) *ModerationHandler {
	return &ModerationHandler{svc: svc}
}

// Report lets any signed-in user flag content.
func (h *ModerationHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenReportReq
	if !decodeValid(w, r, &req) {
		return
	}
	c, err := h.svc.Open(r.Context(), moderation.OpenInput{
		TargetType: domain.TargetType(req.TargetType),
		TargetID:   req.TargetID,
		ReporterID: middleware.UserID(r),
		Reason:     req.Reason,
		Detail:     req.Detail,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, c)
}

// Queue supports ?status=, ?resolved=, ?page= and ?pageSize=.
func (h *ModerationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, err := pageParams(q)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	resolved, err := boolParam(q, "resolved")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	f := domain.CaseFilter{Resolved: resolved, Page: page, PageSize: size}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		st := domain.CaseStatus(v)
		f.Status = &st
	}

	res, err := h.svc.List(r.Context(), middleware.Actor(r), f)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, res)
}

func (h *ModerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), middleware.Actor(r), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, c)
}

func (h *ModerationHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var req dto.TransitionCaseReq
	if !decodeValid(w, r, &req) {
		return
	}
	c, err := h.svc.Transition(r.Context(), middleware.Actor(r), id, domain.CaseStatus(req.Status), req.Note)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, c)
}

func (h *ModerationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var req dto.AssignCaseReq
	if !decodeValid(w, r, &req) {
		return
	}
	c, err := h.svc.Assign(r.Context(), middleware.Actor(r), id, req.AssigneeID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, c)
}

func (h *ModerationHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, err := pageParams(q)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	res, err := h.svc.AuditLog(r.Context(), middleware.Actor(r), moderation.AuditFilter{
		TargetType: domain.TargetType(strings.TrimSpace(q.Get("target_type"))),
		TargetID:   q.Get("target_id"),
		ActorID:    q.Get("actor_id"),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, res)
}

func caseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "case_id")
	if !validate.IsUUID(id) {
		response.Err(w, r, domain.ErrValidationMeta("invalid path param", map[string]string{
			"case_id": "must be uuid",
		}))
		return "", false
	}
	return id, true
}

// decodeValid decodes and validates a JSON body, writing the error response
// itself on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validate.DecodeJSON(w, r, dst); err != nil {
		response.Err(w, r, domain.ErrValidationMeta("invalid json body", map[string]string{
			"body": "malformed JSON or invalid fields",
		}))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		response.Err(w, r, err)
		return false
	}
	return true
}
