package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/assignments"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/messages"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/notifications"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/testutil"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

var sweepTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notifications.Event) error {
	r.events = append(r.events, event)
	return nil
}

// racingRepo moves the row out from under the sweep inside the same
// transaction, just before the guarded cancel runs.
type racingRepo struct {
	Repository
	tx *gorm.DB
}

func (r racingRepo) WithTx(tx *gorm.DB) Repository {
	return racingRepo{Repository: r.Repository.WithTx(tx), tx: tx}
}

func (r racingRepo) Cancel(ctx context.Context, id uint64, origin enums.AssignmentStatus, reason string, now time.Time) (bool, error) {
	if r.tx != nil {
		if err := r.tx.Model(&models.AssignmentRequest{}).Where("id = ?", id).
			Update("status", enums.AssignmentStatusAccepted).Error; err != nil {
			return false, err
		}
	}
	return r.Repository.Cancel(ctx, id, origin, reason, now)
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	notifier *recordingNotifier
}

func newFixture(t *testing.T, wrap func(Repository) Repository) *fixture {
	t.Helper()
	conn := testutil.OpenDB(t)
	msgs, err := messages.NewService(messages.NewRepository(conn), assignments.NewRepository(conn), authz.NewGuard(), nil)
	require.NoError(t, err)

	var repo Repository = NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	notifier := &recordingNotifier{}
	svc, err := NewService(Params{
		Repo:     repo,
		Tx:       db.Wrap(conn),
		Messages: msgs,
		Notifier: notifier,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, notifier: notifier}
}

type seed struct {
	status          enums.AssignmentStatus
	createdAt       time.Time
	updatedAt       time.Time
	priceProposedAt *time.Time
	deadline        *time.Time
	reminderSent    bool
}

func (f *fixture) seed(t *testing.T, s seed) uint64 {
	t.Helper()
	if s.updatedAt.IsZero() {
		s.updatedAt = s.createdAt
	}
	consultant := uint64(10)
	row := models.AssignmentRequest{
		ClientID:             1,
		Title:                "Second opinion",
		Description:          "Review imaging report",
		Status:               s.status,
		ClientReviewStatus:   enums.ClientReviewStatusNone,
		PriceProposedAt:      s.priceProposedAt,
		Deadline:             s.deadline,
		DeadlineReminderSent: s.reminderSent,
		CreatedAt:            s.createdAt,
		UpdatedAt:            s.updatedAt,
	}
	if s.status != enums.AssignmentStatusPendingReview {
		row.ConsultantID = &consultant
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

func (f *fixture) load(t *testing.T, id uint64) models.AssignmentRequest {
	t.Helper()
	var row models.AssignmentRequest
	require.NoError(t, f.conn.First(&row, id).Error)
	return row
}

func (f *fixture) messageTexts(t *testing.T, id uint64) []string {
	t.Helper()
	var texts []string
	require.NoError(t, f.conn.Model(&models.AssignmentMessage{}).
		Where("assignment_id = ?", id).Order("id ASC").Pluck("message", &texts).Error)
	return texts
}

func TestSweepTimeoutsCancelsStaleRequests(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	day := 24 * time.Hour

	staleReview := f.seed(t, seed{status: enums.AssignmentStatusPendingReview, createdAt: sweepTime.Add(-7*day - time.Second)})
	freshReview := f.seed(t, seed{status: enums.AssignmentStatusPendingReview, createdAt: sweepTime.Add(-7*day + time.Second)})
	exactReview := f.seed(t, seed{status: enums.AssignmentStatusPendingReview, createdAt: sweepTime.Add(-7 * day)})
	staleProposal := f.seed(t, seed{
		status:          enums.AssignmentStatusPriceProposed,
		createdAt:       sweepTime.Add(-10 * day),
		updatedAt:       sweepTime.Add(-time.Hour),
		priceProposedAt: testutil.Ptr(sweepTime.Add(-5*day - time.Hour)),
	})
	legacyProposal := f.seed(t, seed{
		status:    enums.AssignmentStatusPriceProposed,
		createdAt: sweepTime.Add(-10 * day),
		updatedAt: sweepTime.Add(-6 * day),
	})
	recentProposal := f.seed(t, seed{
		status:          enums.AssignmentStatusPriceProposed,
		createdAt:       sweepTime.Add(-10 * day),
		priceProposedAt: testutil.Ptr(sweepTime.Add(-4 * day)),
	})
	unpaid := f.seed(t, seed{status: enums.AssignmentStatusPaymentPending, createdAt: sweepTime.Add(-9 * day), updatedAt: sweepTime.Add(-3*day - time.Minute)})
	working := f.seed(t, seed{status: enums.AssignmentStatusInProgress, createdAt: sweepTime.Add(-60 * day)})

	cancelled, err := f.svc.SweepTimeouts(ctx, sweepTime)
	require.NoError(t, err)
	require.Equal(t, []uint64{staleReview, staleProposal, legacyProposal, unpaid}, cancelled)

	for _, id := range []uint64{freshReview, exactReview, recentProposal, working} {
		require.NotEqual(t, enums.AssignmentStatusCancelled, f.load(t, id).Status, "assignment %d", id)
	}

	row := f.load(t, staleReview)
	require.Equal(t, enums.AssignmentStatusCancelled, row.Status)
	require.NotNil(t, row.CancellationReason)
	require.Equal(t, "Auto-cancelled: no consultant response", *row.CancellationReason)
	require.True(t, row.UpdatedAt.Equal(sweepTime))
	require.Equal(t, []string{"Request automatically cancelled: no consultant response."}, f.messageTexts(t, staleReview))
	require.Equal(t, []string{"Request automatically cancelled: no response to price proposal."}, f.messageTexts(t, legacyProposal))
	require.Equal(t, []string{"Request automatically cancelled: payment not received."}, f.messageTexts(t, unpaid))

	require.Len(t, f.notifier.events, 4)
	for _, event := range f.notifier.events {
		require.True(t, event.NotifyOps)
	}
	require.Equal(t, []uint64{1}, f.notifier.events[0].Recipients)
	require.Equal(t, []uint64{1, 10}, f.notifier.events[3].Recipients)

	again, err := f.svc.SweepTimeouts(ctx, sweepTime)
	require.NoError(t, err)
	require.Empty(t, again)
	require.Len(t, f.messageTexts(t, staleReview), 1)
	require.Len(t, f.notifier.events, 4)
}

func TestSweepTimeoutsLaterRunCancelsOnlyNewlyStaleRows(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	day := 24 * time.Hour

	stale := f.seed(t, seed{status: enums.AssignmentStatusPendingReview, createdAt: sweepTime.Add(-7*day - time.Second)})
	aging := f.seed(t, seed{status: enums.AssignmentStatusPendingReview, createdAt: sweepTime.Add(-7*day + time.Second)})

	first, err := f.svc.SweepTimeouts(ctx, sweepTime)
	require.NoError(t, err)
	require.Equal(t, []uint64{stale}, first)

	later, err := f.svc.SweepTimeouts(ctx, sweepTime.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, []uint64{aging}, later)
	require.Len(t, f.messageTexts(t, stale), 1)
	require.Len(t, f.messageTexts(t, aging), 1)
}

func TestSweepTimeoutsSkipsRowsMovedByUsers(t *testing.T) {
	f := newFixture(t, func(inner Repository) Repository { return racingRepo{Repository: inner} })
	id := f.seed(t, seed{status: enums.AssignmentStatusPaymentPending, createdAt: sweepTime.Add(-10 * 24 * time.Hour)})

	cancelled, err := f.svc.SweepTimeouts(context.Background(), sweepTime)
	require.NoError(t, err)
	require.Empty(t, cancelled)
	require.Equal(t, enums.AssignmentStatusAccepted, f.load(t, id).Status)
	require.Empty(t, f.messageTexts(t, id))
	require.Empty(t, f.notifier.events)
}

func TestSweepTimeoutsHonoursConfiguredTimeouts(t *testing.T) {
	conn := testutil.OpenDB(t)
	msgs, err := messages.NewService(messages.NewRepository(conn), assignments.NewRepository(conn), authz.NewGuard(), nil)
	require.NoError(t, err)
	svc, err := NewService(Params{
		Repo:     NewRepository(conn),
		Tx:       db.Wrap(conn),
		Messages: msgs,
		Timeouts: Timeouts{PendingReview: time.Hour},
	})
	require.NoError(t, err)
	f := &fixture{svc: svc, conn: conn, notifier: &recordingNotifier{}}

	id := f.seed(t, seed{status: enums.AssignmentStatusPendingReview, createdAt: sweepTime.Add(-2 * time.Hour)})
	cancelled, err := svc.SweepTimeouts(context.Background(), sweepTime)
	require.NoError(t, err)
	require.Equal(t, []uint64{id}, cancelled)
}

func TestSweepRemindersSendsEachNoticeOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	created := sweepTime.Add(-10 * 24 * time.Hour)

	dueSoon := f.seed(t, seed{status: enums.AssignmentStatusInProgress, createdAt: created, deadline: testutil.Ptr(sweepTime.Add(12 * time.Hour))})
	later := f.seed(t, seed{status: enums.AssignmentStatusInProgress, createdAt: created, deadline: testutil.Ptr(sweepTime.Add(30 * time.Hour))})
	alreadyReminded := f.seed(t, seed{status: enums.AssignmentStatusInProgress, createdAt: created, deadline: testutil.Ptr(sweepTime.Add(2 * time.Hour)), reminderSent: true})
	late := f.seed(t, seed{status: enums.AssignmentStatusPaymentVerified, createdAt: created, deadline: testutil.Ptr(sweepTime.Add(-time.Hour))})
	finished := f.seed(t, seed{status: enums.AssignmentStatusCompleted, createdAt: created, deadline: testutil.Ptr(sweepTime.Add(-time.Hour))})

	result, err := f.svc.SweepReminders(ctx, sweepTime)
	require.NoError(t, err)
	require.Equal(t, &ReminderResult{Reminders: 1, Overdue: 1}, result)

	require.True(t, f.load(t, dueSoon).DeadlineReminderSent)
	require.Equal(t, []string{"Reminder: the deadline is Jun 16, 2026 00:00 UTC."}, f.messageTexts(t, dueSoon))
	require.True(t, f.load(t, late).OverdueNotificationSent)
	require.Equal(t, []string{"The deadline of Jun 15, 2026 11:00 UTC has passed."}, f.messageTexts(t, late))

	for _, id := range []uint64{later, alreadyReminded, finished} {
		require.Empty(t, f.messageTexts(t, id), "assignment %d", id)
	}
	require.False(t, f.load(t, finished).OverdueNotificationSent)

	require.Len(t, f.notifier.events, 2)
	require.Equal(t, enums.NotificationTypeDeadlineAlert, f.notifier.events[0].Type)
	require.False(t, f.notifier.events[0].NotifyOps)
	require.True(t, f.notifier.events[1].NotifyOps)

	again, err := f.svc.SweepReminders(ctx, sweepTime.Add(30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, &ReminderResult{}, again)
}
