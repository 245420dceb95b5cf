package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/baechuer/curation-service/internal/config"
	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/metrics"
	"github.com/baechuer/curation-service/internal/transport/http/handlers"
	"github.com/baechuer/curation-service/internal/transport/http/middleware"
)

type Handlers struct {
	Ranking    *handlers.RankingHandler
	Discovery  *handlers.DiscoveryHandler
	Comments   *handlers.CommentsHandler
	Moderation *handlers.ModerationHandler
	Featured   *handlers.FeaturedHandler
	Cron       *handlers.CronHandler
	Health     *handlers.HealthHandler
}

func New(h Handlers, auth *middleware.AuthMiddleware, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.With(middleware.CronSecret(cfg.CronSecret)).
		Post("/internal/cron/recompute", h.Cron.Recompute)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RLEnabled {
			r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)
			r.Get("/trending", h.Ranking.Trending)
			r.Get("/categories", h.Ranking.Categories)
			r.Get("/discover/for-you", h.Discovery.ForYou)
			r.Get("/discover/creators", h.Discovery.Creators)
			r.Get("/lists/{list_id}/comments", h.Comments.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Post("/lists/{list_id}/comments", h.Comments.Create)
			r.Post("/reports", h.Moderation.Report)
			r.Get("/me/affinity", h.Discovery.MyAffinity)

			r.Route("/moderation/cases", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleModerator))
				r.Get("/", h.Moderation.Queue)
				r.Get("/{case_id}", h.Moderation.Get)
				r.Post("/{case_id}/transition", h.Moderation.Transition)
				r.Post("/{case_id}/assign", h.Moderation.Assign)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
				r.Get("/pulse", h.Ranking.Pulse)
				r.Get("/audit-log", h.Moderation.AuditLog)
				r.Get("/featured/weekly", h.Featured.Weekly)
				r.Get("/featured/categories", h.Featured.Categories)
				r.Get("/featured/rotation", h.Featured.Rotation)
				r.Get("/featured/suggestions", h.Featured.Suggestions)
				r.Get("/featured/slots/{slot_id}", h.Featured.Performance)
			})
		})
	})

	return r
}
