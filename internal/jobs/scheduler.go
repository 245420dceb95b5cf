package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kv).Msg(msg)
}

type Schedule struct {
	Ranking  string
	Affinity string
}

// NewScheduler registers the recompute jobs. Empty specs are skipped.
// Overlapping ticks are dropped and panics are recovered.
func NewScheduler(ctx context.Context, r *Runner, s Schedule) (*cron.Cron, error) {
	lg := cronLogger{log: zlog.With().Str("component", "scheduler").Logger()}
	c := cron.New(
		cron.WithLogger(lg),
		cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
	)

	for job, spec := range map[Job]string{JobRanking: s.Ranking, JobAffinity: s.Affinity} {
		if spec == "" {
			continue
		}
		job := job
		if _, err := c.AddFunc(spec, func() { _, _ = r.Run(ctx, job, "schedule") }); err != nil {
			return nil, err
		}
	}
	return c, nil
}
