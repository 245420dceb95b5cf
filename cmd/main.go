package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/curation-service/internal/application/affinity"
	"github.com/baechuer/curation-service/internal/application/antiabuse"
	"github.com/baechuer/curation-service/internal/application/comments"
	"github.com/baechuer/curation-service/internal/application/discovery"
	"github.com/baechuer/curation-service/internal/application/engagement"
	"github.com/baechuer/curation-service/internal/application/featured"
	"github.com/baechuer/curation-service/internal/application/moderation"
	"github.com/baechuer/curation-service/internal/application/ranking"
	"github.com/baechuer/curation-service/internal/application/scoring"
	"github.com/baechuer/curation-service/internal/audit"
	"github.com/baechuer/curation-service/internal/config"
	"github.com/baechuer/curation-service/internal/infrastructure/postgres"
	"github.com/baechuer/curation-service/internal/infrastructure/rabbitmq"
	"github.com/baechuer/curation-service/internal/infrastructure/redis"
	"github.com/baechuer/curation-service/internal/infrastructure/urlresolve"
	"github.com/baechuer/curation-service/internal/jobs"
	"github.com/baechuer/curation-service/internal/logger"
	"github.com/baechuer/curation-service/internal/transport/http/handlers"
	"github.com/baechuer/curation-service/internal/transport/http/middleware"
	"github.com/baechuer/curation-service/internal/transport/http/response"
	"github.com/baechuer/curation-service/internal/transport/http/router"
)

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// App holds the long-lived pieces main has to start and stop.
type App struct {
	Config    *config.Config
	Server    *http.Server
	Pool      *pgxpool.Pool
	Cache     *redis.Client
	Consumer  *rabbitmq.Consumer
	Scheduler *cron.Cron
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}
	response.Verbose = cfg.IsDev()

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		zlog.Info().
			Str("db_user", u.User.Username()).
			Str("db_host", u.Host).
			Str("db_name", u.Path).
			Msg("db config loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        int32(cfg.DBMaxConns),
		MaxConnIdleTime: 5 * time.Minute,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	var cache *redis.Client
	if c, err := redis.New(cfg.RedisURL); err != nil {
		zlog.Warn().Err(err).Msg("redis unavailable: rankings will be computed on every request")
	} else {
		cache = c
		defer func() { _ = cache.Close() }()
	}

	app, err := NewApp(ctx, cfg, pool, cache)
	if err != nil {
		zlog.Fatal().Err(err).Msg("app init failed")
	}

	var wg sync.WaitGroup
	if app.Consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.Consumer.Run(ctx)
		}()
	}
	app.Scheduler.Start()

	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server crashed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http shutdown error")
	}
	<-app.Scheduler.Stop().Done()
	wg.Wait()
	zlog.Info().Msg("bye")
}

// NewApp wires repositories, services and transport. cache may be nil.
func NewApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, cache *redis.Client) (*App, error) {
	clock := sysClock{}
	auditLog := audit.New(logger.Logger)

	// 1) Infrastructure
	entities := postgres.NewEntityRepo(pool)
	engagementRepo := postgres.NewEngagementRepo(pool)
	interactions := postgres.NewInteractionRepo(pool)
	affinityRepo := postgres.NewAffinityRepo(pool)
	submissions := postgres.NewSubmissionRepo(pool)
	commentRepo := postgres.NewCommentRepo(pool)
	moderationRepo := postgres.NewModerationRepo(pool)
	featuredRepo := postgres.NewFeaturedRepo(pool)
	resolver := urlresolve.New(cfg.URLResolve)

	var rankingCache ranking.Cache
	if cache != nil {
		rankingCache = cache
	}

	// 2) Application
	public, err := scoring.New(cfg.Public)
	if err != nil {
		return nil, err
	}
	pulse, err := scoring.New(cfg.Pulse)
	if err != nil {
		return nil, err
	}
	if diff := cfg.Public.Diff(cfg.Pulse); len(diff) > 0 {
		logger.Logger.Warn().Strs("fields", diff).Msg("pulse and public score weights diverge")
	}
	rankings := ranking.New(entities, featuredRepo, engagement.New(engagementRepo),
		public, pulse, rankingCache, clock, cfg.Ranking)
	affinities := affinity.New(affinityRepo, clock, cfg.KindWeights)
	discover := discovery.New(rankings, affinities, discovery.DefaultConfig())
	cases := moderation.New(moderationRepo, auditLog, clock)
	filter := antiabuse.NewFilter(submissions, submissions, cfg.Limits)
	commentSvc := comments.New(commentRepo, filter, cases, resolver, rankings, auditLog, clock)
	featuredSvc := featured.New(featuredRepo, clock, cfg.Thresholds)
	runner := jobs.NewRunner(rankings, affinities, auditLog)

	scheduler, err := jobs.NewScheduler(ctx, runner, jobs.Schedule{
		Ranking:  cfg.RankingSchedule,
		Affinity: cfg.AffinitySchedule,
	})
	if err != nil {
		return nil, err
	}

	var consumer *rabbitmq.Consumer
	if cfg.RabbitURL != "" {
		consumer = rabbitmq.NewConsumer(rabbitmq.Config{
			URL:      cfg.RabbitURL,
			Exchange: cfg.RabbitExchange,
			Queue:    cfg.RabbitQueue,
		}, interactions, entities, rankings)
	} else {
		zlog.Warn().Msg("RABBIT_URL empty: interaction events will not be ingested")
	}

	// 3) Transport
	deps := map[string]handlers.Pinger{"postgres": pool}
	if cache != nil {
		deps["redis"] = cache
	}
	h := router.Handlers{
		Ranking:    handlers.NewRankingHandler(rankings, entities),
		Discovery:  handlers.NewDiscoveryHandler(discover, affinities),
		Comments:   handlers.NewCommentsHandler(commentSvc),
		Moderation: handlers.NewModerationHandler(cases),
		Featured:   handlers.NewFeaturedHandler(featuredSvc),
		Cron:       handlers.NewCronHandler(runner),
		Health:     handlers.NewHealthHandler(deps),
	}
	auth := middleware.NewAuth(cfg.JWTSecret, cfg.JWTIssuer)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router.New(h, auth, cfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &App{
		Config:    cfg,
		Server:    srv,
		Pool:      pool,
		Cache:     cache,
		Consumer:  consumer,
		Scheduler: scheduler,
	}, nil
}
