package audit

import (
	"context"

	"github.com/baechuer/curation-service/internal/domain"
	pkgctx "github.com/baechuer/curation-service/internal/pkg/context"
	"github.com/rs/zerolog"
)

// Logger writes structured audit lines alongside the persisted audit log.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// SubmissionAccepted logs an accepted comment or suggestion. Hidden marks a
// shadow-banned author.
func (l *Logger) SubmissionAccepted(ctx context.Context, actorID string, targetType domain.TargetType, targetID string, shouldReview, hidden bool) {
	l.log.Info().
		Str("action", "submission_accepted").
		Str("actor_id", actorID).
		Str("target_type", string(targetType)).
		Str("target_id", targetID).
		Bool("should_review", shouldReview).
		Bool("hidden", hidden).
		Str("trace_id", pkgctx.GetRequestID(ctx)).
		Msg("Submission accepted")
}

func (l *Logger) SubmissionRejected(ctx context.Context, actorID string, targetType domain.TargetType, targetID, reason string) {
	l.log.Info().
		Str("action", "submission_rejected").
		Str("actor_id", actorID).
		Str("target_type", string(targetType)).
		Str("target_id", targetID).
		Str("reason", reason).
		Str("trace_id", pkgctx.GetRequestID(ctx)).
		Msg("Submission rejected")
}

func (l *Logger) CaseOpened(ctx context.Context, c domain.ModerationCase) {
	l.log.Info().
		Str("action", "case_opened").
		Str("case_id", c.ID).
		Str("target_type", string(c.TargetType)).
		Str("target_id", c.TargetID).
		Str("reason", c.Reason).
		Str("trace_id", pkgctx.GetRequestID(ctx)).
		Msg("Moderation case opened")
}

func (l *Logger) CaseTransitioned(ctx context.Context, caseID, actorID string, from, to domain.CaseStatus) {
	l.log.Warn().
		Str("action", "case_transitioned").
		Str("case_id", caseID).
		Str("actor_id", actorID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("trace_id", pkgctx.GetRequestID(ctx)).
		Msg("Moderation case status changed")
}

func (l *Logger) CaseAssigned(ctx context.Context, caseID, actorID, assigneeID string) {
	l.log.Info().
		Str("action", "case_assigned").
		Str("case_id", caseID).
		Str("actor_id", actorID).
		Str("assignee_id", assigneeID).
		Str("trace_id", pkgctx.GetRequestID(ctx)).
		Msg("Moderation case assigned")
}

// RecomputeTriggered logs a batch recompute started by cron or the internal endpoint.
func (l *Logger) RecomputeTriggered(ctx context.Context, job, source string) {
	l.log.Info().
		Str("action", "recompute_triggered").
		Str("job", job).
		Str("source", source).
		Str("trace_id", pkgctx.GetRequestID(ctx)).
		Msg("Batch recompute triggered")
}
