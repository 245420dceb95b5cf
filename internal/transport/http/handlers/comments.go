package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/curation-service/internal/application/comments"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/transport/http/dto"
	"github.com/baechuer/curation-service/internal/transport/http/middleware"
	"github.com/baechuer/curation-service/internal/transport/http/response"
)

type Comments interface {
	Submit(ctx context.Context, in comments.SubmitInput) (domain.Comment, error)
	List(ctx context.Context, listID, viewerID string, limit int) ([]domain.Comment, error)
}

type CommentsHandler struct {
	svc Comments
}

func NewCommentsHandler(svc Comments) *CommentsHandler {
	return &CommentsHandler{svc: svc}
}

func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCommentReq
	if !decodeValid(w, r, &req) {
		return
	}
	c, err := h.svc.Submit(r.Context(), comments.SubmitInput{
		ActorID: middleware.UserID(r),
		ListID:  chi.URLParam(r, "list_id"),
		Body:    req.Body,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusCreated, c)
}

// List hides filtered comments except from their own author.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r.URL.Query())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	items, err := h.svc.List(r.Context(), chi.URLParam(r, "list_id"), middleware.UserID(r), limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.ItemsResp[domain.Comment]{Items: items})
}
