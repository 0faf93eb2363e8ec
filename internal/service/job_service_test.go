package service

import (
	"context"
	"testing"
	"time"

	"medmatch/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirePendingAssignments(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cancels expired assignments and releases their slots", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		svc := NewJobService(repository.NewJobRepository(mockDB), nil)
		svc.now = func() time.Time { return base }

		mock.ExpectQuery(`SELECT id, availability_slot_id FROM assignments`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "availability_slot_id"}).
				AddRow("a-1", "s-1").
				AddRow("a-2", nil))
		mock.ExpectExec(`UPDATE assignments`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`UPDATE availability_slots`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		cancelled, err := svc.ExpirePendingAssignments(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, cancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no-op when nothing has expired", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		svc := NewJobService(repository.NewJobRepository(mockDB), nil)
		svc.now = func() time.Time { return base }

		mock.ExpectQuery(`SELECT id, availability_slot_id FROM assignments`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "availability_slot_id"}))

		cancelled, err := svc.ExpirePendingAssignments(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, cancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
