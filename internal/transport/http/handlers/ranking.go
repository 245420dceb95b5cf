package handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/curation-service/internal/application/ranking"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/transport/http/dto"
	"github.com/baechuer/curation-service/internal/transport/http/middleware"
	"github.com/baechuer/curation-service/internal/transport/http/response"
)

type Rankings interface {
	Trending(ctx context.Context, q ranking.Query) (ranking.Result, error)
	Pulse(ctx context.Context, q ranking.Query) (ranking.Result, error)
}

type CategoryLister interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type RankingHandler struct {
	svc        Rankings
	categories CategoryLister
}

func NewRankingHandler(svc Rankings, categories CategoryLister) *RankingHandler {
	return &RankingHandler{svc: svc, categories: categories}
}

// Trending is public. bypass=1 is a debug switch and only honoured for
// moderators; anyone else is served from cache.
func (h *RankingHandler) Trending(w http.ResponseWriter, r *http.Request) {
	q, err := rankingQuery(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if q.Bypass && !middleware.Actor(r).AtLeast(domain.RoleModerator) {
		q.Bypass = false
	}
	res, err := h.svc.Trending(r.Context(), q)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, res)
}

// Pulse is the admin dashboard feed; routed behind RequireRole.
func (h *RankingHandler) Pulse(w http.ResponseWriter, r *http.Request) {
	q, err := rankingQuery(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	res, err := h.svc.Pulse(r.Context(), q)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, res)
}

func (h *RankingHandler) Categories(w http.ResponseWriter, r *http.Request) {
	items, err := h.categories.ListCategories(r.Context())
	if err != nil {
		response.Err(w, r, domain.Unavailable(err))
		return
	}
	if items == nil {
		items = []domain.Category{}
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.Category]{Items: items})
}

func rankingQuery(r *http.Request) (ranking.Query, error) {
	q := r.URL.Query()
	rng, err := domain.ParseRange(q.Get("range"))
	if err != nil {
		return ranking.Query{}, err
	}
	limit, err := limitParam(q)
	if err != nil {
		return ranking.Query{}, err
	}
	bypass, err := boolParam(q, "bypass")
	if err != nil {
		return ranking.Query{}, err
	}
	return ranking.Query{
		CategoryID: q.Get("category"),
		Range:      rng,
		Limit:      limit,
		Bypass:     bypass != nil && *bypass,
	}, nil
}
