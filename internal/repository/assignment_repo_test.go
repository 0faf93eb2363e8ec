package repository

import (
	"context"
	"testing"
	"time"

	"medmatch/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingAssignment(slotID *string, now time.Time) *db.Assignment {
	expires := now.Add(24 * time.Hour)
	return &db.Assignment{
		ID:                 "a-1",
		HospitalID:         "h-1",
		DoctorID:           "d-1",
		PatientID:          "p-1",
		AvailabilitySlotID: slotID,
		Priority:           db.PriorityRoutine,
		Status:             db.AssignmentPending,
		RequestedAt:        now,
		ExpiresAt:          &expires,
		ConsultationFee:    1500,
	}
}

func TestCreateWithSlotClaim(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	slotID := "s-1"

	t.Run("claims the slot in the same transaction", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		repo := NewAssignmentRepository(mockDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO assignments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`UPDATE availability_slots`).
			WithArgs(db.SlotBooked, "h-1", now, slotID, db.SlotAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.CreateWithSlotClaim(context.Background(), pendingAssignment(&slotID, now))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when another hospital won the slot", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		repo := NewAssignmentRepository(mockDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO assignments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`UPDATE availability_slots`).
			WithArgs(db.SlotBooked, "h-1", now, slotID, db.SlotAvailable).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.CreateWithSlotClaim(context.Background(), pendingAssignment(&slotID, now))
		assert.ErrorIs(t, err, ErrSlotTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips the claim when no slot is attached", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		repo := NewAssignmentRepository(mockDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO assignments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		err = repo.CreateWithSlotClaim(context.Background(), pendingAssignment(nil, now))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkTransitionsGuardStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewAssignmentRepository(mockDB)

	// Zero rows affected means the guard in the WHERE clause rejected the
	// transition.
	mock.ExpectExec(`UPDATE assignments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkAccepted(context.Background(), "a-1", now)
	assert.Error(t, err)
}
