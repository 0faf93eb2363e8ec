package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"medmatch/internal/db"

	"github.com/lib/pq"
)

type DoctorRepository struct {
	DB *sql.DB
}

func NewDoctorRepository(database *sql.DB) *DoctorRepository {
	return &DoctorRepository{DB: database}
}

func (r *DoctorRepository) GetDoctorByID(ctx context.Context, id string) (*db.Doctor, error) {
	var d db.Doctor
	query := `
		SELECT id, user_id, first_name, last_name, specialty, years_of_experience,
		       average_rating, completed_assignments, consultation_fee, phone, email,
		       created_at, updated_at
		FROM doctors WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Specialty, &d.YearsOfExperience,
		&d.AverageRating, &d.CompletedAssignments, &d.ConsultationFee, &d.Phone, &d.Email,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying doctor %s: %w", id, err)
	}
	return &d, nil
}

func (r *DoctorRepository) GetDoctorByUserID(ctx context.Context, userID string) (*db.Doctor, error) {
	var d db.Doctor
	query := `
		SELECT id, user_id, first_name, last_name, specialty, years_of_experience,
		       average_rating, completed_assignments, consultation_fee, phone, email,
		       created_at, updated_at
		FROM doctors WHERE user_id = $1`
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Specialty, &d.YearsOfExperience,
		&d.AverageRating, &d.CompletedAssignments, &d.ConsultationFee, &d.Phone, &d.Email,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying doctor for user %s: %w", userID, err)
	}
	return &d, nil
}

// ListDoctors returns doctors matching an optional specialty filter, highest
// rated first. Tier derivation and access filtering happen in the service.
func (r *DoctorRepository) ListDoctors(ctx context.Context, specialty string) ([]db.Doctor, error) {
	query := `
		SELECT id, user_id, first_name, last_name, specialty, years_of_experience,
		       average_rating, completed_assignments, consultation_fee, phone, email,
		       created_at, updated_at
		FROM doctors WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if specialty != "" {
		query += " AND specialty = $" + strconv.Itoa(idx)
		args = append(args, specialty)
		idx++
	}
	query += " ORDER BY average_rating DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying doctors: %w", err)
	}
	defer rows.Close()

	var doctors []db.Doctor
	for rows.Next() {
		var d db.Doctor
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Specialty, &d.YearsOfExperience,
			&d.AverageRating, &d.CompletedAssignments, &d.ConsultationFee, &d.Phone, &d.Email,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

// Availability templates

func (r *DoctorRepository) CreateTemplate(ctx context.Context, t *db.AvailabilityTemplate) error {
	query := `
		INSERT INTO availability_templates
		(id, doctor_id, template_name, start_time, end_time, recurrence_pattern, recurrence_days, valid_from, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`
	return r.DB.QueryRowContext(ctx, query,
		t.ID, t.DoctorID, t.TemplateName, t.StartTime, t.EndTime,
		t.RecurrencePattern, pq.Array(t.RecurrenceDays), t.ValidFrom, t.ValidUntil,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *DoctorRepository) GetTemplateByID(ctx context.Context, id string) (*db.AvailabilityTemplate, error) {
	var t db.AvailabilityTemplate
	query := `
		SELECT id, doctor_id, template_name, start_time, end_time, recurrence_pattern,
		       recurrence_days, valid_from, valid_until, created_at, updated_at
		FROM availability_templates WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.DoctorID, &t.TemplateName, &t.StartTime, &t.EndTime, &t.RecurrencePattern,
		pq.Array(&t.RecurrenceDays), &t.ValidFrom, &t.ValidUntil, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying template %s: %w", id, err)
	}
	return &t, nil
}

func (r *DoctorRepository) ListTemplatesByDoctor(ctx context.Context, doctorID string) ([]db.AvailabilityTemplate, error) {
	query := `
		SELECT id, doctor_id, template_name, start_time, end_time, recurrence_pattern,
		       recurrence_days, valid_from, valid_until, created_at, updated_at
		FROM availability_templates
		WHERE doctor_id = $1
		ORDER BY valid_from, start_time`
	rows, err := r.DB.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("error querying templates for doctor %s: %w", doctorID, err)
	}
	defer rows.Close()

	var templates []db.AvailabilityTemplate
	for rows.Next() {
		var t db.AvailabilityTemplate
		if err := rows.Scan(
			&t.ID, &t.DoctorID, &t.TemplateName, &t.StartTime, &t.EndTime, &t.RecurrencePattern,
			pq.Array(&t.RecurrenceDays), &t.ValidFrom, &t.ValidUntil, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// ListTemplatesActiveBetween returns templates whose validity window touches
// the [startDate, endDate] range, for slot materialization.
func (r *DoctorRepository) ListTemplatesActiveBetween(ctx context.Context, startDate, endDate string) ([]db.AvailabilityTemplate, error) {
	query := `
		SELECT id, doctor_id, template_name, start_time, end_time, recurrence_pattern,
		       recurrence_days, valid_from, valid_until, created_at, updated_at
		FROM availability_templates
		WHERE valid_from <= $2 AND (valid_until IS NULL OR valid_until >= $1)`
	rows, err := r.DB.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("error querying active templates: %w", err)
	}
	defer rows.Close()

	var templates []db.AvailabilityTemplate
	for rows.Next() {
		var t db.AvailabilityTemplate
		if err := rows.Scan(
			&t.ID, &t.DoctorID, &t.TemplateName, &t.StartTime, &t.EndTime, &t.RecurrencePattern,
			pq.Array(&t.RecurrenceDays), &t.ValidFrom, &t.ValidUntil, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *DoctorRepository) UpdateTemplate(ctx context.Context, t *db.AvailabilityTemplate) error {
	query := `
		UPDATE availability_templates
		SET template_name = $3, start_time = $4, end_time = $5, recurrence_pattern = $6,
		    recurrence_days = $7, valid_from = $8, valid_until = $9, updated_at = NOW()
		WHERE id = $1 AND doctor_id = $2`
	result, err := r.DB.ExecContext(ctx, query,
		t.ID, t.DoctorID, t.TemplateName, t.StartTime, t.EndTime,
		t.RecurrencePattern, pq.Array(t.RecurrenceDays), t.ValidFrom, t.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("error updating template %s: %w", t.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *DoctorRepository) DeleteTemplate(ctx context.Context, templateID, doctorID string) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM availability_templates WHERE id = $1 AND doctor_id = $2`, templateID, doctorID)
	if err != nil {
		return fmt.Errorf("error deleting template %s: %w", templateID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Availability slots

func (r *DoctorRepository) CreateSlot(ctx context.Context, s *db.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots
		(id, doctor_id, template_id, slot_date, start_time, end_time, status, is_manual, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`
	return r.DB.QueryRowContext(ctx, query,
		s.ID, s.DoctorID, s.TemplateID, s.SlotDate, s.StartTime, s.EndTime,
		s.Status, s.IsManual, s.Notes,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *DoctorRepository) GetSlotByID(ctx context.Context, id string) (*db.AvailabilitySlot, error) {
	var s db.AvailabilitySlot
	query := `
		SELECT id, doctor_id, template_id, slot_date, start_time, end_time, status,
		       booked_by_hospital_id, booked_at, is_manual, notes, created_at, updated_at
		FROM availability_slots WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.DoctorID, &s.TemplateID, &s.SlotDate, &s.StartTime, &s.EndTime, &s.Status,
		&s.BookedByHospitalID, &s.BookedAt, &s.IsManual, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying slot %s: %w", id, err)
	}
	return &s, nil
}

func (r *DoctorRepository) ListSlotsByDoctor(ctx context.Context, doctorID string) ([]db.AvailabilitySlot, error) {
	query := `
		SELECT id, doctor_id, template_id, slot_date, start_time, end_time, status,
		       booked_by_hospital_id, booked_at, is_manual, notes, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1
		ORDER BY slot_date, start_time`
	rows, err := r.DB.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("error querying slots for doctor %s: %w", doctorID, err)
	}
	defer rows.Close()

	var slots []db.AvailabilitySlot
	for rows.Next() {
		var s db.AvailabilitySlot
		if err := rows.Scan(
			&s.ID, &s.DoctorID, &s.TemplateID, &s.SlotDate, &s.StartTime, &s.EndTime, &s.Status,
			&s.BookedByHospitalID, &s.BookedAt, &s.IsManual, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// HasAvailabilityOverlap reports whether the doctor already has a slot on the
// same calendar date whose time range strictly overlaps [startTime, endTime).
// excludeSlotID may be empty; a non-empty value excludes that slot, for
// update checks against self.
func (r *DoctorRepository) HasAvailabilityOverlap(ctx context.Context, doctorID, slotDate, startTime, endTime, excludeSlotID string) (bool, error) {
	query := `
		SELECT id FROM availability_slots
		WHERE doctor_id = $1 AND slot_date = $2 AND start_time < $3 AND end_time > $4`
	args := []interface{}{doctorID, slotDate, endTime, startTime}
	if excludeSlotID != "" {
		query += " AND id != $5"
		args = append(args, excludeSlotID)
	}
	query += " LIMIT 1"

	var id string
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error checking slot overlap: %w", err)
	}
	return true, nil
}

// ListAvailableSlotTimes returns the start times of a doctor's free slots on
// one date, for search result annotation.
func (r *DoctorRepository) ListAvailableSlotTimes(ctx context.Context, doctorID, slotDate string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT start_time FROM availability_slots
		WHERE doctor_id = $1 AND slot_date = $2 AND status = $3
		ORDER BY start_time`, doctorID, slotDate, db.SlotAvailable)
	if err != nil {
		return nil, fmt.Errorf("error querying available slot times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("error scanning slot time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *DoctorRepository) UpdateSlot(ctx context.Context, s *db.AvailabilitySlot) error {
	query := `
		UPDATE availability_slots
		SET slot_date = $3, start_time = $4, end_time = $5, notes = $6, updated_at = NOW()
		WHERE id = $1 AND doctor_id = $2`
	result, err := r.DB.ExecContext(ctx, query, s.ID, s.DoctorID, s.SlotDate, s.StartTime, s.EndTime, s.Notes)
	if err != nil {
		return fmt.Errorf("error updating slot %s: %w", s.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetSlotStatus moves a slot between statuses. The expected current status is
// guarded in the WHERE clause, so a concurrent booking loses the race cleanly.
func (r *DoctorRepository) SetSlotStatus(ctx context.Context, slotID, doctorID, from, to string) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE availability_slots SET status = $4, updated_at = NOW()
		WHERE id = $1 AND doctor_id = $2 AND status = $3`, slotID, doctorID, from, to)
	if err != nil {
		return fmt.Errorf("error updating status of slot %s: %w", slotID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *DoctorRepository) DeleteSlot(ctx context.Context, slotID, doctorID string) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM availability_slots WHERE id = $1 AND doctor_id = $2`, slotID, doctorID)
	if err != nil {
		return fmt.Errorf("error deleting slot %s: %w", slotID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
