package main

import (
	"fmt"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/assignments"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/messages"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/reconciler"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/mailer"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/metrics"
)

// buildSweeper wires the reconciler with the collaborators it needs to post
// system messages and notify participants.
func buildSweeper(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, m *metrics.AssignmentMetrics) (reconciler.Service, error) {
	conn := dbClient.DB()

	var notifyOpts []notifications.Option
	if cfg.SMTP.Enabled() {
		sender, err := mailer.New(cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("mailer: %w", err)
		}
		notifyOpts = append(notifyOpts, notifications.WithMailer(sender, cfg.SMTP.OpsEmail))
	}
	notifier, err := notifications.NewService(notifications.NewRepository(conn), notifyOpts...)
	if err != nil {
		return nil, err
	}

	msgs, err := messages.NewService(messages.NewRepository(conn), assignments.NewRepository(conn), authz.NewGuard(), nil)
	if err != nil {
		return nil, err
	}

	return reconciler.NewService(reconciler.Params{
		Repo:     reconciler.NewRepository(conn),
		Tx:       dbClient,
		Messages: msgs,
		Notifier: notifier,
		Metrics:  m,
		Logger:   logg,
		Timeouts: reconciler.Timeouts{
			PendingReview:  cfg.Reconciler.PendingReviewTTL,
			PriceProposed:  cfg.Reconciler.PriceProposedTTL,
			PaymentPending: cfg.Reconciler.PaymentTTL,
			ReminderWindow: cfg.Reconciler.ReminderWindow,
		},
	})
}
