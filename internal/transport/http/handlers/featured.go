package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/transport/http/dto"
	"github.com/baechuer/curation-service/internal/transport/http/response"
)

type FeaturedAnalytics interface {
	Performance(ctx context.Context, slotID string) (domain.SlotPerformance, error)
	WeeklyReport(ctx context.Context, weeks int) ([]domain.WeeklyBucket, error)
	CategoryInsights(ctx context.Context, r domain.Range) ([]domain.CategoryInsight, error)
	RotationInsight(ctx context.Context) (domain.RotationInsight, error)
	Suggestions(ctx context.Context, categoryID string, limit int) ([]domain.FeatureCandidate, error)
}

// FeaturedHandler serves the back-office featured-slot analytics. All routes
// sit behind RequireRole(admin).
type FeaturedHandler struct {
	svc FeaturedAnalytics
}

func NewFeaturedHandler(svc FeaturedAnalytics) *FeaturedHandler {
	return &FeaturedHandler{svc: svc}
}

func (h *FeaturedHandler) Performance(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Performance(r.Context(), chi.URLParam(r, "slot_id"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, p)
}

func (h *FeaturedHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	weeks, err := intParam(r.URL.Query(), "weeks", 0)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.WeeklyReport(r.Context(), weeks)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.WeeklyBucket]{Items: items})
}

func (h *FeaturedHandler) Categories(w http.ResponseWriter, r *http.Request) {
	rng, err := domain.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.CategoryInsights(r.Context(), rng)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.CategoryInsight]{Items: items})
}

func (h *FeaturedHandler) Rotation(w http.ResponseWriter, r *http.Request) {
	insight, err := h.svc.RotationInsight(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, insight)
}

func (h *FeaturedHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := limitParam(q)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.Suggestions(r.Context(), q.Get("category"), limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.FeatureCandidate]{Items: items})
}
