package handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/curation-service/internal/jobs"
	"github.com/baechuer/curation-service/internal/transport/http/dto"
	"github.com/baechuer/curation-service/internal/transport/http/response"
)

type JobRunner interface {
	Run(ctx context.Context, job jobs.Job, source string) ([]jobs.Report, error)
}

type CronHandler struct {
	runner JobRunner
}

func NewCronHandler(runner JobRunner) *CronHandler {
	return &CronHandler{runner: runner}
}

// Recompute runs ?job=ranking|affinity|all synchronously. The caller is an
// external scheduler authenticated by CronSecret.
func (h *CronHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	job, err := jobs.ParseJob(r.URL.Query().Get("job"))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	reports, err := h.runner.Run(r.Context(), job, "cron")
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, dto.CronResp{Job: job, Reports: reports})
}
