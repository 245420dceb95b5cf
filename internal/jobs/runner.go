package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/curation-service/internal/application/affinity"
	"github.com/baechuer/curation-service/internal/audit"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/metrics"
	zlog "github.com/rs/zerolog/log"
)

type Job string

const (
	JobRanking  Job = "ranking"
	JobAffinity Job = "affinity"
	JobAll      Job = "all"
)

func ParseJob(s string) (Job, error) {
	switch j := Job(strings.ToLower(strings.TrimSpace(s))); j {
	case JobRanking, JobAffinity, JobAll:
		return j, nil
	case "":
		return JobAll, nil
	}
	return "", domain.ErrValidationMeta("invalid query param", map[string]string{
		"job": "must be one of: ranking, affinity, all",
	})
}

type RankingRecomputer interface {
	Recompute(ctx context.Context) (int, error)
}

type AffinityRecomputer interface {
	RecomputeAll(ctx context.Context) (affinity.RunStats, error)
}

type Report struct {
	Job        Job                `json:"job"`
	Snapshots  int                `json:"snapshots,omitempty"`
	Affinity   *affinity.RunStats `json:"affinity,omitempty"`
	DurationMs int64              `json:"duration_ms"`
}

// Runner executes batch recomputes. A job never overlaps with itself; a
// second trigger while one is running gets ErrInvalidState.
type Runner struct {
	ranking  RankingRecomputer
	affinity AffinityRecomputer
	audit    *audit.Logger

	rankingMu  sync.Mutex
	affinityMu sync.Mutex
}

func NewRunner(r RankingRecomputer, a AffinityRecomputer, auditLog *audit.Logger) *Runner {
	return &Runner{ranking: r, affinity: a, audit: auditLog}
}

// Run executes job. source is "cron" or "schedule" and only feeds the audit log.
func (r *Runner) Run(ctx context.Context, job Job, source string) ([]Report, error) {
	if r.audit != nil {
		r.audit.RecomputeTriggered(ctx, string(job), source)
	}
	switch job {
	case JobRanking:
		rep, err := r.runRanking(ctx)
		return []Report{rep}, err
	case JobAffinity:
		rep, err := r.runAffinity(ctx)
		return []Report{rep}, err
	case JobAll:
		a, aerr := r.runAffinity(ctx)
		if err := ctx.Err(); err != nil {
			return []Report{a}, errors.Join(aerr, err)
		}
		k, kerr := r.runRanking(ctx)
		return []Report{a, k}, errors.Join(aerr, kerr)
	}
	return nil, domain.ErrValidation("unknown job " + string(job))
}

func (r *Runner) runRanking(ctx context.Context) (Report, error) {
	if !r.rankingMu.TryLock() {
		return Report{Job: JobRanking}, errBusy(JobRanking)
	}
	defer r.rankingMu.Unlock()

	start := time.Now()
	n, err := r.ranking.Recompute(ctx)
	d := time.Since(start)
	metrics.RecordJobRun(string(JobRanking), d, err)
	logRun(JobRanking, d, err)
	return Report{Job: JobRanking, Snapshots: n, DurationMs: d.Milliseconds()}, err
}

func (r *Runner) runAffinity(ctx context.Context) (Report, error) {
	if !r.affinityMu.TryLock() {
		return Report{Job: JobAffinity}, errBusy(JobAffinity)
	}
	defer r.affinityMu.Unlock()

	start := time.Now()
	stats, err := r.affinity.RecomputeAll(ctx)
	d := time.Since(start)
	metrics.RecordJobRun(string(JobAffinity), d, err)
	logRun(JobAffinity, d, err)
	return Report{Job: JobAffinity, Affinity: &stats, DurationMs: d.Milliseconds()}, err
}

func logRun(job Job, d time.Duration, err error) {
	if err != nil {
		zlog.Error().Err(err).Str("job", string(job)).Dur("duration", d).Msg("batch job failed")
		return
	}
	zlog.Info().Str("job", string(job)).Dur("duration", d).Msg("batch job finished")
}

func errBusy(job Job) error {
	return domain.ErrInvalidState(string(job) + " recompute already running")
}
