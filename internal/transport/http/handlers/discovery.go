package handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/transport/http/dto"
	"github.com/baechuer/curation-service/internal/transport/http/middleware"
	"github.com/baechuer/curation-service/internal/transport/http/response"
)

type Discovery interface {
	ForYou(ctx context.Context, userID string, limit int) ([]domain.Ranked, error)
	Creators(ctx context.Context, userID string, limit int) ([]domain.CreatorScore, error)
}

type AffinityReader interface {
	Get(ctx context.Context, userID string) (map[string]float64, error)
}

type DiscoveryHandler struct {
	svc      Discovery
	affinity AffinityReader
}

func NewDiscoveryHandler(svc Discovery, affinity AffinityReader) *DiscoveryHandler {
	return &DiscoveryHandler{svc: svc, affinity: affinity}
}

// ForYou works for anonymous callers too; they get trending order.
func (h *DiscoveryHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r.URL.Query())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.ForYou(r.Context(), middleware.UserID(r), limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.Ranked]{Items: items})
}

func (h *DiscoveryHandler) Creators(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r.URL.Query())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.Creators(r.Context(), middleware.UserID(r), limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.CreatorScore]{Items: items})
}

// MyAffinity returns the caller's persisted category weights.
func (h *DiscoveryHandler) MyAffinity(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserID(r)
	weights, err := h.affinity.Get(r.Context(), uid)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if weights == nil {
		weights = map[string]float64{}
	}
	response.Data(w, http.StatusOK, dto.AffinityResp{UserID: uid, Weights: weights})
}
