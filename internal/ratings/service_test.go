package ratings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/internal/authz"
	"github.com/sumo1993/medconsult-liberia-sub003/internal/testutil"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

var (
	patient  = authz.Actor{UserID: 1, Role: enums.UserRoleClient}
	stranger = authz.Actor{UserID: 2, Role: enums.UserRoleClient}
	doctor   = authz.Actor{UserID: 10, Role: enums.UserRoleDoctor}
	admin    = authz.Actor{UserID: 20, Role: enums.UserRoleAdmin}
)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := testutil.OpenDB(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), authz.NewGuard())
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC) }
	return s, conn
}

func seedAssignment(t *testing.T, conn *gorm.DB, status enums.AssignmentStatus, consultantID *uint64) uint64 {
	t.Helper()
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	row := models.AssignmentRequest{
		ClientID:           patient.UserID,
		ConsultantID:       consultantID,
		Title:              "Lab review",
		Description:        "Interpret blood panel",
		Status:             status,
		ClientReviewStatus: enums.ClientReviewStatusNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row.ID
}

func TestRecordRatingAggregates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 3; i++ {
		ids = append(ids, seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID)))
	}

	scores := []int{5, 4, 4}
	var summary *Summary
	for i, id := range ids {
		var err error
		summary, err = svc.RecordRating(ctx, RecordInput{AssignmentID: id, Actor: patient, Rating: scores[i]})
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, summary.TotalRatings)
	require.InDelta(t, 13.0/3.0, summary.AverageRating, 1e-9)

	stored, err := svc.GetConsultantRating(ctx, doctor.UserID)
	require.NoError(t, err)
	require.Equal(t, summary, stored)
}

func TestRecordRatingReplacesExisting(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	first := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))
	second := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))

	_, err := svc.RecordRating(ctx, RecordInput{AssignmentID: first, Actor: patient, Rating: 5})
	require.NoError(t, err)
	_, err = svc.RecordRating(ctx, RecordInput{AssignmentID: second, Actor: patient, Rating: 4})
	require.NoError(t, err)

	review := "  Thorough and quick.  "
	summary, err := svc.RecordRating(ctx, RecordInput{AssignmentID: first, Actor: patient, Rating: 2, Review: &review})
	require.NoError(t, err)
	require.EqualValues(t, 2, summary.TotalRatings)
	require.InDelta(t, 3.0, summary.AverageRating, 0.0001)

	rating, err := svc.repo.FindRating(ctx, first, patient.UserID)
	require.NoError(t, err)
	require.Equal(t, 2, rating.Rating)
	require.NotNil(t, rating.Review)
	require.Equal(t, "Thorough and quick.", *rating.Review)

	var count int64
	require.NoError(t, conn.Model(&models.Rating{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestRecordRatingErrors(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	done := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))
	active := seedAssignment(t, conn, enums.AssignmentStatusInProgress, testutil.Ptr(doctor.UserID))

	cases := []struct {
		name  string
		input RecordInput
		code  pkgerrors.Code
	}{
		{"score too low", RecordInput{AssignmentID: done, Actor: patient, Rating: 0}, pkgerrors.CodeValidation},
		{"score too high", RecordInput{AssignmentID: done, Actor: patient, Rating: 6}, pkgerrors.CodeValidation},
		{"missing assignment", RecordInput{AssignmentID: 999, Actor: patient, Rating: 3}, pkgerrors.CodeNotFound},
		{"other client", RecordInput{AssignmentID: done, Actor: stranger, Rating: 3}, pkgerrors.CodeForbidden},
		{"consultant", RecordInput{AssignmentID: done, Actor: doctor, Rating: 3}, pkgerrors.CodeForbidden},
		{"admin", RecordInput{AssignmentID: done, Actor: admin, Rating: 3}, pkgerrors.CodeForbidden},
		{"not completed", RecordInput{AssignmentID: active, Actor: patient, Rating: 3}, pkgerrors.CodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordRating(ctx, tc.input)
			require.Truef(t, pkgerrors.IsCode(err, tc.code), "want %s got %v", tc.code, err)
		})
	}

	var count int64
	require.NoError(t, conn.Model(&models.Rating{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetConsultantRatingWithoutRatings(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.GetConsultantRating(context.Background(), doctor.UserID)
	require.NoError(t, err)
	require.Equal(t, &Summary{ConsultantID: doctor.UserID}, summary)

	_, err = svc.GetConsultantRating(context.Background(), 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type recordingRepository struct {
	Repository
	calls *[]string
}

func (r recordingRepository) WithTx(tx *gorm.DB) Repository {
	return recordingRepository{Repository: r.Repository.WithTx(tx), calls: r.calls}
}

func (r recordingRepository) Upsert(ctx context.Context, rating *models.Rating) error {
	*r.calls = append(*r.calls, "upsert")
	return r.Repository.Upsert(ctx, rating)
}

func (r recordingRepository) LockProfile(ctx context.Context, consultantID uint64, now time.Time) (*models.ConsultantProfile, error) {
	*r.calls = append(*r.calls, "lock")
	return r.Repository.LockProfile(ctx, consultantID, now)
}

func (r recordingRepository) Aggregate(ctx context.Context, consultantID uint64) (Aggregate, error) {
	*r.calls = append(*r.calls, "aggregate")
	return r.Repository.Aggregate(ctx, consultantID)
}

func (r recordingRepository) SaveProfile(ctx context.Context, profile *models.ConsultantProfile) error {
	*r.calls = append(*r.calls, "save")
	return r.Repository.SaveProfile(ctx, profile)
}

func TestRecordRatingLocksProfileBeforeAggregating(t *testing.T) {
	svc, conn := newTestService(t)
	var calls []string
	svc.repo = recordingRepository{Repository: svc.repo, calls: &calls}
	id := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))

	_, err := svc.RecordRating(context.Background(), RecordInput{AssignmentID: id, Actor: patient, Rating: 4})
	require.NoError(t, err)
	require.Equal(t, []string{"lock", "upsert", "aggregate", "save"}, calls)
}

func TestLockProfileCreatesMissingRowOnce(t *testing.T) {
	_, conn := newTestService(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	profile, err := repo.LockProfile(ctx, doctor.UserID, now)
	require.NoError(t, err)
	require.Equal(t, doctor.UserID, profile.ConsultantID)
	require.Zero(t, profile.TotalRatings)

	require.NoError(t, repo.SaveProfile(ctx, &models.ConsultantProfile{ConsultantID: doctor.UserID, AverageRating: 4.5, TotalRatings: 2, UpdatedAt: now}))
	again, err := repo.LockProfile(ctx, doctor.UserID, now.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, again.TotalRatings)
	require.InDelta(t, 4.5, again.AverageRating, 1e-9)

	var count int64
	require.NoError(t, conn.Model(&models.ConsultantProfile{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func requireProfileMatchesRatings(t *testing.T, conn *gorm.DB, consultantID uint64) {
	t.Helper()
	var live struct {
		Average float64
		Total   int64
	}
	require.NoError(t, conn.Model(&models.Rating{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("consultant_id = ?", consultantID).
		Scan(&live).Error)

	var profile models.ConsultantProfile
	require.NoError(t, conn.Where("consultant_id = ?", consultantID).First(&profile).Error)
	require.Equal(t, live.Total, profile.TotalRatings)
	require.InDelta(t, live.Average, profile.AverageRating, 1e-9)
}

func TestConsultantProfileTracksLiveAggregate(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	first := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))
	second := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))
	third := seedAssignment(t, conn, enums.AssignmentStatusCompleted, testutil.Ptr(doctor.UserID))

	for _, step := range []struct {
		id    uint64
		score int
	}{{first, 5}, {second, 4}, {third, 4}, {first, 1}, {third, 5}} {
		summary, err := svc.RecordRating(ctx, RecordInput{AssignmentID: step.id, Actor: patient, Rating: step.score})
		require.NoError(t, err)
		requireProfileMatchesRatings(t, conn, doctor.UserID)

		stored, err := svc.GetConsultantRating(ctx, doctor.UserID)
		require.NoError(t, err)
		require.Equal(t, summary, stored)
	}

	stored, err := svc.GetConsultantRating(ctx, doctor.UserID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.TotalRatings)
	require.InDelta(t, 10.0/3.0, stored.AverageRating, 1e-9)
}
