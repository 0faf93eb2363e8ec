package service

import (
	"context"
	"testing"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"
	"medmatch/internal/repository"
	"medmatch/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tmpl(pattern string, days []string, start, end, validFrom string, validUntil *string) *db.AvailabilityTemplate {
	return &db.AvailabilityTemplate{
		StartTime:         start,
		EndTime:           end,
		RecurrencePattern: pattern,
		RecurrenceDays:    days,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
	}
}

func until(s string) *string { return &s }

func TestTemplatesConflict(t *testing.T) {
	tests := []struct {
		name string
		a    *db.AvailabilityTemplate
		b    *db.AvailabilityTemplate
		want bool
	}{
		{
			name: "disjoint validity windows never conflict",
			a:    tmpl("daily", nil, "09:00", "17:00", "2026-01-01", until("2026-01-31")),
			b:    tmpl("daily", nil, "09:00", "17:00", "2026-02-01", until("2026-02-28")),
			want: false,
		},
		{
			name: "disjoint times of day never conflict",
			a:    tmpl("daily", nil, "08:00", "12:00", "2026-01-01", nil),
			b:    tmpl("daily", nil, "12:00", "18:00", "2026-01-01", nil),
			want: false,
		},
		{
			name: "daily conflicts with daily",
			a:    tmpl("daily", nil, "09:00", "17:00", "2026-01-01", nil),
			b:    tmpl("daily", nil, "16:00", "20:00", "2026-01-15", nil),
			want: true,
		},
		{
			name: "daily conflicts with weekly",
			a:    tmpl("daily", nil, "09:00", "17:00", "2026-01-01", nil),
			b:    tmpl("weekly", []string{"sat"}, "10:00", "12:00", "2026-01-01", nil),
			want: true,
		},
		{
			name: "weekly sets sharing a day conflict",
			a:    tmpl("weekly", []string{"mon", "wed"}, "09:00", "17:00", "2026-01-01", nil),
			b:    tmpl("custom", []string{"wed", "fri"}, "10:00", "12:00", "2026-01-01", nil),
			want: true,
		},
		{
			name: "weekly sets with no shared day do not conflict",
			a:    tmpl("weekly", []string{"mon", "wed"}, "09:00", "17:00", "2026-01-01", nil),
			b:    tmpl("weekly", []string{"tue", "thu"}, "09:00", "17:00", "2026-01-01", nil),
			want: false,
		},
		{
			name: "monthly conflicts with monthly",
			a:    tmpl("monthly", nil, "09:00", "17:00", "2026-01-15", nil),
			b:    tmpl("monthly", nil, "10:00", "12:00", "2026-03-20", nil),
			want: true,
		},
		{
			name: "monthly conflicts with daily",
			a:    tmpl("monthly", nil, "09:00", "17:00", "2026-01-15", nil),
			b:    tmpl("daily", nil, "10:00", "12:00", "2026-01-01", nil),
			want: true,
		},
		{
			name: "monthly does not conflict with weekly",
			a:    tmpl("monthly", nil, "09:00", "17:00", "2026-01-15", nil),
			b:    tmpl("weekly", []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}, "09:00", "17:00", "2026-01-01", nil),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TemplatesConflict(tt.a, tt.b))
			assert.Equal(t, tt.want, TemplatesConflict(tt.b, tt.a))
		})
	}
}

func TestTemplateFiresOn(t *testing.T) {
	parse := func(s string) time.Time {
		day, err := time.Parse(utils.DateLayout, s)
		assert.NoError(t, err)
		return day
	}

	daily := tmpl("daily", nil, "09:00", "17:00", "2026-01-10", until("2026-01-20"))
	assert.False(t, templateFiresOn(daily, parse("2026-01-09"), "2026-01-09"))
	assert.True(t, templateFiresOn(daily, parse("2026-01-10"), "2026-01-10"))
	assert.True(t, templateFiresOn(daily, parse("2026-01-20"), "2026-01-20"))
	assert.False(t, templateFiresOn(daily, parse("2026-01-21"), "2026-01-21"))

	// 2026-01-05 is a Monday.
	weekly := tmpl("weekly", []string{"mon", "fri"}, "09:00", "12:00", "2026-01-01", nil)
	assert.True(t, templateFiresOn(weekly, parse("2026-01-05"), "2026-01-05"))
	assert.False(t, templateFiresOn(weekly, parse("2026-01-06"), "2026-01-06"))
	assert.True(t, templateFiresOn(weekly, parse("2026-01-09"), "2026-01-09"))

	monthly := tmpl("monthly", nil, "14:00", "16:00", "2026-01-15", nil)
	assert.True(t, templateFiresOn(monthly, parse("2026-01-15"), "2026-01-15"))
	assert.True(t, templateFiresOn(monthly, parse("2026-02-15"), "2026-02-15"))
	assert.False(t, templateFiresOn(monthly, parse("2026-02-16"), "2026-02-16"))
	assert.False(t, templateFiresOn(monthly, parse("2026-01-14"), "2026-01-14"))
}

func newScheduleServiceWithMock(t *testing.T) (*ScheduleService, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewScheduleService(repository.NewDoctorRepository(mockDB)), mock, func() { mockDB.Close() }
}

var slotTestColumns = []string{
	"id", "doctor_id", "template_id", "slot_date", "start_time", "end_time", "status",
	"booked_by_hospital_id", "booked_at", "is_manual", "notes", "created_at", "updated_at",
}

func availableSlotRow(id, doctorID, date, start, end, status string, base time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(slotTestColumns).
		AddRow(id, doctorID, nil, date, start, end, status, nil, nil, true, "", base, base)
}

func TestCreateSlotOverlap(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := &entities.SlotRequest{SlotDate: "2026-03-10", StartTime: "10:00", EndTime: "11:00"}

	t.Run("rejects a slot overlapping an existing one on the same date", func(t *testing.T) {
		svc, mock, cleanup := newScheduleServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT id FROM availability_slots`).
			WithArgs("d-1", "2026-03-10", "11:00", "10:00").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-9"))

		_, err := svc.CreateSlot(context.Background(), "d-1", req)
		require.Error(t, err)
		assert.Equal(t, "conflict", errCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates the slot when the same date is free", func(t *testing.T) {
		svc, mock, cleanup := newScheduleServiceWithMock(t)
		defer cleanup()

		// The overlap check is scoped to the requested date, so slots on other
		// days never count against it.
		mock.ExpectQuery(`SELECT id FROM availability_slots`).
			WithArgs("d-1", "2026-03-10", "11:00", "10:00").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`INSERT INTO availability_slots`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(base, base))

		resp, err := svc.CreateSlot(context.Background(), "d-1", req)
		require.NoError(t, err)
		assert.Equal(t, db.SlotAvailable, resp.Status)
		assert.True(t, resp.IsManual)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateSlotExcludesItselfFromOverlapCheck(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, mock, cleanup := newScheduleServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(`FROM availability_slots WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnRows(availableSlotRow("s-1", "d-1", "2026-03-10", "09:00", "10:00", db.SlotAvailable, base))
	mock.ExpectQuery(`SELECT id FROM availability_slots`).
		WithArgs("d-1", "2026-03-10", "12:00", "09:00", "s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE availability_slots`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.UpdateSlot(context.Background(), "d-1", "s-1",
		&entities.SlotRequest{SlotDate: "2026-03-10", StartTime: "09:00", EndTime: "12:00"})
	require.NoError(t, err)
	assert.Equal(t, "12:00", resp.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockSlot(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("takes an available slot off the market", func(t *testing.T) {
		svc, mock, cleanup := newScheduleServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`FROM availability_slots WHERE id = \$1`).
			WithArgs("s-1").
			WillReturnRows(availableSlotRow("s-1", "d-1", "2026-03-10", "09:00", "10:00", db.SlotAvailable, base))
		mock.ExpectExec(`UPDATE availability_slots SET status`).
			WithArgs("s-1", "d-1", db.SlotAvailable, db.SlotBlocked).
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.BlockSlot(context.Background(), "d-1", "s-1")
		require.NoError(t, err)
		assert.Equal(t, db.SlotBlocked, resp.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses to block a booked slot", func(t *testing.T) {
		svc, mock, cleanup := newScheduleServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`FROM availability_slots WHERE id = \$1`).
			WithArgs("s-1").
			WillReturnRows(availableSlotRow("s-1", "d-1", "2026-03-10", "09:00", "10:00", db.SlotBooked, base))

		_, err := svc.BlockSlot(context.Background(), "d-1", "s-1")
		require.Error(t, err)
		assert.Equal(t, "conflict", errCode(t, err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unblock puts the slot back on the market", func(t *testing.T) {
		svc, mock, cleanup := newScheduleServiceWithMock(t)
		defer cleanup()

		mock.ExpectQuery(`FROM availability_slots WHERE id = \$1`).
			WithArgs("s-1").
			WillReturnRows(availableSlotRow("s-1", "d-1", "2026-03-10", "09:00", "10:00", db.SlotBlocked, base))
		mock.ExpectExec(`UPDATE availability_slots SET status`).
			WithArgs("s-1", "d-1", db.SlotBlocked, db.SlotAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.UnblockSlot(context.Background(), "d-1", "s-1")
		require.NoError(t, err)
		assert.Equal(t, db.SlotAvailable, resp.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestValidateTemplate(t *testing.T) {
	base := func() *db.AvailabilityTemplate {
		v := tmpl("weekly", []string{"mon"}, "09:00", "17:00", "2026-01-01", nil)
		v.TemplateName = "Morning clinic"
		return v
	}

	assert.NoError(t, validateTemplate(base()))

	missingName := base()
	missingName.TemplateName = ""
	assert.Error(t, validateTemplate(missingName))

	reversed := base()
	reversed.StartTime, reversed.EndTime = "17:00", "09:00"
	assert.Error(t, validateTemplate(reversed))

	badPattern := base()
	badPattern.RecurrencePattern = "biweekly"
	assert.Error(t, validateTemplate(badPattern))

	weeklyNoDays := base()
	weeklyNoDays.RecurrenceDays = nil
	assert.Error(t, validateTemplate(weeklyNoDays))

	windowReversed := base()
	windowReversed.ValidFrom = "2026-06-01"
	windowReversed.ValidUntil = until("2026-01-01")
	assert.Error(t, validateTemplate(windowReversed))
}
