package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"medmatch/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doctorTestColumns = []string{
	"id", "user_id", "first_name", "last_name", "specialty", "years_of_experience",
	"average_rating", "completed_assignments", "consultation_fee", "phone", "email",
	"created_at", "updated_at",
}

func newSearchServiceWithMock(t *testing.T, now time.Time) (*SearchService, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	svc := NewSearchService(repository.NewDoctorRepository(mockDB), repository.NewHospitalRepository(mockDB))
	svc.now = func() time.Time { return now }
	return svc, mock, func() { mockDB.Close() }
}

// Three doctors, one per tier, in rating order as the query returns them.
func searchDoctorRows(base time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(doctorTestColumns).
		AddRow("d-platinum", "u-1", "Eva", "Stone", "cardiology", 20, 4.9, 800, 5000, "", "", base, base).
		AddRow("d-gold", "u-2", "Ana", "Diaz", "cardiology", 12, 4.7, 250, 0, "", "", base, base).
		AddRow("d-silver", "u-3", "Ben", "Cole", "cardiology", 5, 4.0, 50, 1200, "", "", base, base)
}

func TestFindDoctors(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("free plan sees accessible doctors first", func(t *testing.T) {
		svc, mock, cleanup := newSearchServiceWithMock(t, base)
		defer cleanup()

		// No subscription row means the free tier.
		mock.ExpectQuery(`SELECT plan_tier FROM subscriptions`).
			WithArgs("h-1", base).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`FROM doctors`).
			WillReturnRows(searchDoctorRows(base))

		resp, err := svc.FindDoctors(context.Background(), "h-1", "", "")
		require.NoError(t, err)
		assert.Equal(t, "free", resp.HospitalSubscription)
		require.Len(t, resp.Doctors, 3)

		// Only the silver doctor is bookable on the free plan, so it sorts
		// ahead of the higher tiers, which stay visible but locked.
		assert.Equal(t, "d-silver", resp.Doctors[0].ID)
		assert.Equal(t, "silver", resp.Doctors[0].Tier)
		assert.True(t, resp.Doctors[0].Accessible)

		assert.Equal(t, "d-platinum", resp.Doctors[1].ID)
		assert.Equal(t, "premium", resp.Doctors[1].RequiredPlan)
		assert.False(t, resp.Doctors[1].Accessible)

		assert.Equal(t, "d-gold", resp.Doctors[2].ID)
		assert.Equal(t, "gold", resp.Doctors[2].RequiredPlan)
		assert.False(t, resp.Doctors[2].Accessible)

		// The gold doctor never set a fee, so the experience default applies.
		assert.Equal(t, 2200, resp.Doctors[2].ConsultationFee)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("premium plan sorts every doctor by tier", func(t *testing.T) {
		svc, mock, cleanup := newSearchServiceWithMock(t, base)
		defer cleanup()

		mock.ExpectQuery(`SELECT plan_tier FROM subscriptions`).
			WithArgs("h-1", base).
			WillReturnRows(sqlmock.NewRows([]string{"plan_tier"}).AddRow("premium"))
		mock.ExpectQuery(`FROM doctors`).
			WillReturnRows(searchDoctorRows(base))

		resp, err := svc.FindDoctors(context.Background(), "h-1", "", "")
		require.NoError(t, err)
		assert.Equal(t, "premium", resp.HospitalSubscription)
		require.Len(t, resp.Doctors, 3)
		assert.Equal(t, "d-platinum", resp.Doctors[0].ID)
		assert.Equal(t, "d-gold", resp.Doctors[1].ID)
		assert.Equal(t, "d-silver", resp.Doctors[2].ID)
		for _, d := range resp.Doctors {
			assert.True(t, d.Accessible)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a malformed date filter", func(t *testing.T) {
		svc, mock, cleanup := newSearchServiceWithMock(t, base)
		defer cleanup()

		_, err := svc.FindDoctors(context.Background(), "h-1", "", "03/10/2026")
		require.Error(t, err)
		assert.Equal(t, "validation_error", errCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
