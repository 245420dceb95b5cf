package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curation_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curation_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Ranking cache
	rankingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curation_ranking_cache_total",
			Help: "Ranking cache lookups by profile and result (hit, miss, bypass, error)",
		},
		[]string{"profile", "result"},
	)

	rankingComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curation_ranking_compute_duration_seconds",
			Help:    "Time spent recomputing a ranking snapshot",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"profile"},
	)

	// Write-path gating
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curation_submissions_total",
			Help: "Comment and suggestion submissions by outcome (accepted, review, hidden, or reject reason)",
		},
		[]string{"target_type", "outcome"},
	)

	// Batch jobs
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curation_job_runs_total",
			Help: "Batch recompute runs by job and status",
		},
		[]string{"job", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curation_job_duration_seconds",
			Help:    "Batch recompute duration",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"job"},
	)

	// Ingest
	interactionsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curation_interactions_consumed_total",
			Help: "Interaction events consumed from the broker",
		},
		[]string{"kind", "status"},
	)

	// URL resolution
	urlResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curation_url_resolve_total",
			Help: "URL resolutions by result (cache_hit, resolved, failed, breaker_open)",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordRankingCache(profile, result string) {
	rankingCacheTotal.WithLabelValues(profile, result).Inc()
}

func RecordRankingCompute(profile string, d time.Duration) {
	rankingComputeDuration.WithLabelValues(profile).Observe(d.Seconds())
}

func RecordSubmission(targetType, outcome string) {
	submissionsTotal.WithLabelValues(targetType, outcome).Inc()
}

func RecordJobRun(job string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	jobRunsTotal.WithLabelValues(job, status).Inc()
	jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func RecordInteractionConsumed(kind, status string) {
	interactionsConsumedTotal.WithLabelValues(kind, status).Inc()
}

func RecordURLResolve(result string) {
	urlResolveTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
