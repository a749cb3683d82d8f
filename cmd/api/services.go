package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sumo1993/medconsult-liberia-sub003/api/routes"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/assignments"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/earnings"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/messages"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/ratings"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/reconciler"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/mailer"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/metrics"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/redis"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/storage"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/storage/gcs"
)

func openBlobStore(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (storage.Store, error) {
	if cfg.UseGCS() {
		return gcs.NewStore(ctx, cfg, logg)
	}
	return storage.NewLocalStore(cfg.BasePath, cfg.MaxUploadBytes())
}

func buildDeps(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg *prometheus.Registry) (routes.Deps, error) {
	conn := dbClient.DB()
	guard := authz.NewGuard()
	assignmentMetrics := metrics.NewAssignmentMetrics(reg)

	blobs, err := openBlobStore(ctx, cfg.Storage, logg)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("storage: %w", err)
	}

	var notifyOpts []notifications.Option
	if cfg.SMTP.Enabled() {
		sender, err := mailer.New(cfg.SMTP)
		if err != nil {
			return routes.Deps{}, fmt.Errorf("mailer: %w", err)
		}
		notifyOpts = append(notifyOpts, notifications.WithMailer(sender, cfg.SMTP.OpsEmail))
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(conn), notifyOpts...)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("notifications: %w", err)
	}

	assignmentRepo := assignments.NewRepository(conn)
	messagesService, err := messages.NewService(messages.NewRepository(conn), assignmentRepo, guard, blobs)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("messages: %w", err)
	}

	earningsService, err := earnings.NewService(earnings.NewRepository(conn), guard)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("earnings: %w", err)
	}

	assignmentsService, err := assignments.NewService(assignments.Deps{
		Repo:     assignmentRepo,
		Tx:       dbClient,
		Guard:    guard,
		Messages: messagesService,
		Earnings: earningsService,
		Blobs:    blobs,
		Notifier: notificationsService,
		Metrics:  assignmentMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("assignments: %w", err)
	}

	ratingsService, err := ratings.NewService(ratings.NewRepository(conn), dbClient, guard)
	if err != nil {
		return routes.Deps{}, fmt.Errorf("ratings: %w", err)
	}

	reconcilerService, err := reconciler.NewService(reconciler.Params{
		Repo:     reconciler.NewRepository(conn),
		Tx:       dbClient,
		Messages: messagesService,
		Notifier: notificationsService,
		Metrics:  assignmentMetrics,
		Logger:   logg,
		Timeouts: reconciler.Timeouts{
			PendingReview:  cfg.Reconciler.PendingReviewTTL,
			PriceProposed:  cfg.Reconciler.PriceProposedTTL,
			PaymentPending: cfg.Reconciler.PaymentTTL,
			ReminderWindow: cfg.Reconciler.ReminderWindow,
		},
	})
	if err != nil {
		return routes.Deps{}, fmt.Errorf("reconciler: %w", err)
	}

	return routes.Deps{
		DB:            dbClient,
		Redis:         redisClient,
		Idempotency:   redisClient,
		RateLimiter:   redisClient,
		Gatherer:      reg,
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Assignments:   assignmentsService,
		Messages:      messagesService,
		Ratings:       ratingsService,
		Earnings:      earningsService,
		Notifications: notificationsService,
		Reconciler:    reconcilerService,
	}, nil
}
