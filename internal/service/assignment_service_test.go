package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"
	apperrors "medmatch/internal/errors"
	"medmatch/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assignmentTestColumns = []string{
	"id", "hospital_id", "doctor_id", "patient_id", "availability_slot_id", "priority", "status",
	"requested_at", "expires_at", "accepted_at", "declined_at", "completed_at", "cancelled_at",
	"cancelled_by", "cancellation_reason", "treatment_notes", "consultation_fee", "created_at", "updated_at",
}

func newAssignmentServiceWithMock(t *testing.T, now time.Time) (*AssignmentService, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	svc := NewAssignmentService(
		repository.NewAssignmentRepository(mockDB),
		repository.NewDoctorRepository(mockDB),
		repository.NewHospitalRepository(mockDB),
		nil,
	)
	svc.now = func() time.Time { return now }
	return svc, mock, func() { mockDB.Close() }
}

func assignmentRow(a *db.Assignment, base time.Time) *sqlmock.Rows {
	toValue := func(s *string) driver.Value {
		if s == nil {
			return nil
		}
		return *s
	}
	toTime := func(ts *time.Time) driver.Value {
		if ts == nil {
			return nil
		}
		return *ts
	}
	return sqlmock.NewRows(assignmentTestColumns).AddRow(
		a.ID, a.HospitalID, a.DoctorID, a.PatientID, toValue(a.AvailabilitySlotID), a.Priority, a.Status,
		a.RequestedAt, toTime(a.ExpiresAt), toTime(a.AcceptedAt), toTime(a.DeclinedAt), toTime(a.CompletedAt),
		toTime(a.CancelledAt), toValue(a.CancelledBy), toValue(a.CancellationReason), toValue(a.TreatmentNotes),
		a.ConsultationFee, base, base,
	)
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var httpErr *apperrors.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected HTTPError, got %v", err)
	return httpErr.Code
}

func TestAcceptExpiredAssignment(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	expired := base.Add(-1 * time.Minute)
	pending := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		Priority: db.PriorityEmergency, Status: db.AssignmentPending,
		RequestedAt: base.Add(-2 * time.Hour), ExpiresAt: &expired, ConsultationFee: 1500,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(pending, base))

	_, err := svc.UpdateStatus(context.Background(), "doctor", "d-1", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentAccepted})
	require.Error(t, err)
	assert.Equal(t, "expired", errCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptAtExactDeadline(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	// The deadline itself is already too late.
	deadline := base
	pending := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		Priority: db.PriorityUrgent, Status: db.AssignmentPending,
		RequestedAt: base.Add(-6 * time.Hour), ExpiresAt: &deadline, ConsultationFee: 1500,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(pending, base))

	_, err := svc.UpdateStatus(context.Background(), "doctor", "d-1", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentAccepted})
	require.Error(t, err)
	assert.Equal(t, "expired", errCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptPendingAssignment(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	expires := base.Add(3 * time.Hour)
	pending := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		Priority: db.PriorityUrgent, Status: db.AssignmentPending,
		RequestedAt: base.Add(-3 * time.Hour), ExpiresAt: &expires, ConsultationFee: 1500,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(pending, base))
	mock.ExpectExec(`UPDATE assignments SET status = \$1, accepted_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	accepted := *pending
	accepted.Status = db.AssignmentAccepted
	acceptedAt := base
	accepted.AcceptedAt = &acceptedAt
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(&accepted, base))

	resp, err := svc.UpdateStatus(context.Background(), "doctor", "d-1", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentAccepted})
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentAccepted, resp.Status)
	assert.Equal(t, db.AssignmentAccepted, resp.DisplayStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclineReleasesSlot(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	expires := base.Add(20 * time.Hour)
	slotID := "s-1"
	pending := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		AvailabilitySlotID: &slotID,
		Priority:           db.PriorityRoutine, Status: db.AssignmentPending,
		RequestedAt: base.Add(-4 * time.Hour), ExpiresAt: &expires, ConsultationFee: 1500,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(pending, base))
	mock.ExpectExec(`UPDATE assignments SET status = \$1, declined_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE availability_slots`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	declined := *pending
	declined.Status = db.AssignmentDeclined
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(&declined, base))

	resp, err := svc.UpdateStatus(context.Background(), "doctor", "d-1", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentDeclined, CancellationReason: "fully booked"})
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentDeclined, resp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteCreatesPaymentRecord(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	accepted := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		Priority: db.PriorityRoutine, Status: db.AssignmentAccepted,
		RequestedAt: base.Add(-48 * time.Hour), ConsultationFee: 2000,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(accepted, base))
	mock.ExpectExec(`UPDATE assignments SET status = \$1, completed_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO assignment_payments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	completed := *accepted
	completed.Status = db.AssignmentCompleted
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(&completed, base))

	resp, err := svc.UpdateStatus(context.Background(), "doctor", "d-1", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentCompleted, TreatmentNotes: "full recovery"})
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentCompleted, resp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAlreadyCompleted(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	completed := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		Priority: db.PriorityRoutine, Status: db.AssignmentCompleted,
		RequestedAt: base.Add(-72 * time.Hour), ConsultationFee: 2000,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(completed, base))

	_, err := svc.UpdateStatus(context.Background(), "doctor", "d-1", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentCompleted})
	require.Error(t, err)
	assert.Equal(t, "invalid_transition", errCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelByOtherHospitalDenied(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	expires := base.Add(time.Hour)
	pending := &db.Assignment{
		ID: "a-1", HospitalID: "h-1", DoctorID: "d-1", PatientID: "p-1",
		Priority: db.PriorityRoutine, Status: db.AssignmentPending,
		RequestedAt: base, ExpiresAt: &expires, ConsultationFee: 2000,
	}
	mock.ExpectQuery(`FROM assignments WHERE id = \$1`).
		WithArgs("a-1").WillReturnRows(assignmentRow(pending, base))

	_, err := svc.UpdateStatus(context.Background(), "hospital", "h-other", "a-1",
		&entities.AssignmentStatusRequest{Status: db.AssignmentCancelled})
	require.Error(t, err)
	assert.Equal(t, "access_denied", errCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmergencyAssignment(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	mock.ExpectQuery(`FROM patients WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hospital_id", "full_name", "medical_condition", "created_at"}).
			AddRow("p-1", "h-1", "John Smith", "fracture", base))
	mock.ExpectQuery(`FROM doctors WHERE id = \$1`).
		WithArgs("d-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "first_name", "last_name", "specialty", "years_of_experience",
			"average_rating", "completed_assignments", "consultation_fee", "phone", "email",
			"created_at", "updated_at",
		}).AddRow("d-1", "u-1", "Ana", "Diaz", "orthopedics", 4, 4.2, 30, 0, "", "", base, base))
	mock.ExpectQuery(`SELECT plan_tier FROM subscriptions`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO assignments`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(base, base))
	mock.ExpectCommit()

	resp, err := svc.Create(context.Background(), "h-1", &entities.AssignmentRequest{
		PatientID: "p-1",
		DoctorID:  "d-1",
		Priority:  db.PriorityEmergency,
	})
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentPending, resp.Status)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, base.Add(1*time.Hour), *resp.ExpiresAt)
	// Doctor has no fee set, so the default from experience applies.
	assert.Equal(t, 1400, resp.ConsultationFee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBlockedByPlanTier(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	mock.ExpectQuery(`FROM patients WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hospital_id", "full_name", "medical_condition", "created_at"}).
			AddRow("p-1", "h-1", "John Smith", "cardiac", base))
	mock.ExpectQuery(`FROM doctors WHERE id = \$1`).
		WithArgs("d-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "first_name", "last_name", "specialty", "years_of_experience",
			"average_rating", "completed_assignments", "consultation_fee", "phone", "email",
			"created_at", "updated_at",
		}).AddRow("d-1", "u-1", "Eva", "Stone", "cardiology", 20, 4.9, 800, 5000, "", "", base, base))
	mock.ExpectQuery(`SELECT plan_tier FROM subscriptions`).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Create(context.Background(), "h-1", &entities.AssignmentRequest{
		PatientID: "p-1",
		DoctorID:  "d-1",
		Priority:  db.PriorityRoutine,
	})
	require.Error(t, err)
	assert.Equal(t, "access_denied", errCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisplayStatusDerivation(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, cleanup := newAssignmentServiceWithMock(t, base)
	defer cleanup()

	past := base.Add(-time.Minute)
	future := base.Add(time.Minute)
	assert.Equal(t, "expired", svc.DisplayStatus(db.AssignmentPending, &past))
	assert.Equal(t, "expired", svc.DisplayStatus(db.AssignmentPending, &base))
	assert.Equal(t, db.AssignmentPending, svc.DisplayStatus(db.AssignmentPending, &future))
	assert.Equal(t, db.AssignmentAccepted, svc.DisplayStatus(db.AssignmentAccepted, &past))
	assert.Equal(t, db.AssignmentPending, svc.DisplayStatus(db.AssignmentPending, nil))
}
