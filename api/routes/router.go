package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumo1993/medconsult-liberia-sub003/api/controllers"
	"github.com/sumo1993/medconsult-liberia-sub003/api/middleware"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/assignments"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/earnings"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/messages"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/ratings"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/reconciler"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/metrics"
	pkgredis "github.com/sumo1993/medconsult-liberia-sub003/pkg/redis"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps groups everything the HTTP surface dispatches to. Nil services answer
// with an internal error; nil stores disable the matching middleware.
type Deps struct {
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   pkgredis.IdempotencyStore
	RateLimiter   rateLimiter
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Assignments   assignments.Service
	Messages      messages.Service
	Ratings       ratings.Service
	Earnings      earnings.Service
	Notifications notifications.Service
	Reconciler    reconciler.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	uploadPolicy := middleware.RateLimitPolicy{
		Name:   "uploads",
		Limit:  cfg.HTTP.UploadRateLimit,
		Window: cfg.HTTP.UploadRateWindow,
	}
	maxUpload := cfg.Storage.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/internal/v1/reconciler", func(r chi.Router) {
		r.Use(middleware.SharedSecret(cfg.Reconciler.Secret, logg))
		r.Post("/timeouts", controllers.SweepTimeouts(deps.Reconciler, nil, logg))
		r.Post("/reminders", controllers.SweepReminders(deps.Reconciler, nil, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Idempotency.TTL, logg))

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", controllers.CreateAssignment(deps.Assignments, logg))
			r.Get("/", controllers.ListAssignments(deps.Assignments, logg))

			r.Route("/{assignmentId}", func(r chi.Router) {
				r.Get("/", controllers.GetAssignment(deps.Assignments, logg))
				r.With(middleware.RateLimit(uploadPolicy, deps.RateLimiter, logg)).
					Post("/actions/{action}", controllers.TransitionAssignment(deps.Assignments, maxUpload, logg))
				r.Get("/files/{kind}", controllers.DownloadAssignmentFile(deps.Assignments, logg))
				r.Get("/messages", controllers.ListMessages(deps.Messages, logg))
				r.With(middleware.RateLimit(uploadPolicy, deps.RateLimiter, logg)).
					Post("/messages", controllers.PostMessage(deps.Messages, maxUpload, logg))
				r.Post("/rating", controllers.RecordRating(deps.Ratings, logg))
			})
		})

		r.Route("/consultants/{consultantId}", func(r chi.Router) {
			r.Get("/balance", controllers.GetConsultantBalance(deps.Earnings, logg))
			r.Get("/rating", controllers.GetConsultantRating(deps.Ratings, logg))
		})

		r.Route("/accounting", func(r chi.Router) {
			r.Get("/earnings", controllers.ListEarnings(deps.Earnings, logg))
			r.Patch("/earnings/{earningId}", controllers.UpdateEarningStatus(deps.Earnings, logg))
			r.Get("/payments", controllers.ListPayments(deps.Earnings, logg))
			r.Post("/payments", controllers.RecordPayment(deps.Earnings, logg))
			r.Get("/team-balances", controllers.TeamBalances(deps.Earnings, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
