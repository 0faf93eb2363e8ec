package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"

	"github.com/lib/pq"
)

// ErrSlotTaken is returned when the conditional slot claim matches no row,
// meaning another hospital booked the slot first.
var ErrSlotTaken = errors.New("slot is no longer available")

type AssignmentRepository struct {
	DB *sql.DB
}

func NewAssignmentRepository(database *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: database}
}

const assignmentColumns = `
	id, hospital_id, doctor_id, patient_id, availability_slot_id, priority, status,
	requested_at, expires_at, accepted_at, declined_at, completed_at, cancelled_at,
	cancelled_by, cancellation_reason, treatment_notes, consultation_fee, created_at, updated_at`

func scanAssignment(row interface{ Scan(...interface{}) error }, a *db.Assignment) error {
	return row.Scan(
		&a.ID, &a.HospitalID, &a.DoctorID, &a.PatientID, &a.AvailabilitySlotID, &a.Priority, &a.Status,
		&a.RequestedAt, &a.ExpiresAt, &a.AcceptedAt, &a.DeclinedAt, &a.CompletedAt, &a.CancelledAt,
		&a.CancelledBy, &a.CancellationReason, &a.TreatmentNotes, &a.ConsultationFee, &a.CreatedAt, &a.UpdatedAt,
	)
}

// CreateWithSlotClaim inserts the assignment and, when a slot is attached,
// claims it in the same transaction with a conditional update. The claim
// matches only a currently-available row; zero rows affected means another
// hospital won the race and the whole transaction is rolled back with
// ErrSlotTaken.
func (r *AssignmentRepository) CreateWithSlotClaim(ctx context.Context, a *db.Assignment) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO assignments
		(id, hospital_id, doctor_id, patient_id, availability_slot_id, priority, status,
		 requested_at, expires_at, consultation_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = tx.QueryRowContext(ctx, insert,
		a.ID, a.HospitalID, a.DoctorID, a.PatientID, a.AvailabilitySlotID,
		a.Priority, a.Status, a.RequestedAt, a.ExpiresAt, a.ConsultationFee,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting assignment: %w", err)
	}

	if a.AvailabilitySlotID != nil {
		claim := `
			UPDATE availability_slots
			SET status = $1, booked_by_hospital_id = $2, booked_at = $3, updated_at = NOW()
			WHERE id = $4 AND status = $5`
		result, err := tx.ExecContext(ctx, claim,
			db.SlotBooked, a.HospitalID, a.RequestedAt, *a.AvailabilitySlotID, db.SlotAvailable)
		if err != nil {
			return fmt.Errorf("error claiming slot %s: %w", *a.AvailabilitySlotID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading claim result: %w", err)
		}
		if n == 0 {
			return ErrSlotTaken
		}
	}

	return tx.Commit()
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*db.Assignment, error) {
	var a db.Assignment
	query := `SELECT` + assignmentColumns + ` FROM assignments WHERE id = $1`
	err := scanAssignment(r.DB.QueryRowContext(ctx, query, id), &a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying assignment %s: %w", id, err)
	}
	return &a, nil
}

// MarkAccepted transitions a pending assignment to accepted. The status guard
// in the WHERE clause is a backstop behind the service-level check.
func (r *AssignmentRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, `
		UPDATE assignments SET status = $1, accepted_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		db.AssignmentAccepted, at, id, db.AssignmentPending)
}

func (r *AssignmentRepository) MarkDeclined(ctx context.Context, id string, at time.Time, reason *string) error {
	return r.transition(ctx, `
		UPDATE assignments SET status = $1, declined_at = $2, cancellation_reason = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		db.AssignmentDeclined, at, reason, id, db.AssignmentPending)
}

func (r *AssignmentRepository) MarkCompleted(ctx context.Context, id string, at time.Time, notes *string) error {
	return r.transition(ctx, `
		UPDATE assignments SET status = $1, completed_at = $2, treatment_notes = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		db.AssignmentCompleted, at, notes, id, db.AssignmentAccepted)
}

func (r *AssignmentRepository) MarkCancelled(ctx context.Context, id string, at time.Time, by string, reason *string) error {
	return r.transition(ctx, `
		UPDATE assignments SET status = $1, cancelled_at = $2, cancelled_by = $3, cancellation_reason = $4, updated_at = NOW()
		WHERE id = $5 AND status IN ($6, $7)`,
		db.AssignmentCancelled, at, by, reason, id, db.AssignmentPending, db.AssignmentAccepted)
}

func (r *AssignmentRepository) transition(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating assignment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading transition result: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReleaseSlot puts a booked slot back on the market.
func (r *AssignmentRepository) ReleaseSlot(ctx context.Context, slotID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE availability_slots
		SET status = $1, booked_by_hospital_id = NULL, booked_at = NULL, updated_at = NOW()
		WHERE id = $2`, db.SlotAvailable, slotID)
	if err != nil {
		return fmt.Errorf("error releasing slot %s: %w", slotID, err)
	}
	return nil
}

// ListDetailedByDoctor returns the doctor's assignments joined with patient,
// hospital and slot details, newest request first.
func (r *AssignmentRepository) ListDetailedByDoctor(ctx context.Context, doctorID, status string) ([]entities.AssignmentResponse, error) {
	return r.listDetailed(ctx, "a.doctor_id", doctorID, status)
}

// ListDetailedByHospital mirrors ListDetailedByDoctor for the hospital side.
func (r *AssignmentRepository) ListDetailedByHospital(ctx context.Context, hospitalID, status string) ([]entities.AssignmentResponse, error) {
	return r.listDetailed(ctx, "a.hospital_id", hospitalID, status)
}

func (r *AssignmentRepository) listDetailed(ctx context.Context, column, id, status string) ([]entities.AssignmentResponse, error) {
	query := `
		SELECT a.id, a.hospital_id, a.doctor_id, a.patient_id, a.availability_slot_id,
		       a.priority, a.status, a.requested_at, a.expires_at, a.accepted_at,
		       a.declined_at, a.completed_at, a.cancelled_at, a.cancelled_by,
		       a.cancellation_reason, a.treatment_notes, a.consultation_fee,
		       p.full_name, d.first_name || ' ' || d.last_name, h.name,
		       s.slot_date, s.start_time, s.end_time
		FROM assignments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		JOIN hospitals h ON h.id = a.hospital_id
		LEFT JOIN availability_slots s ON s.id = a.availability_slot_id
		WHERE ` + column + ` = $1`
	args := []interface{}{id}
	if status != "" && status != "all" {
		query += " AND a.status = $" + strconv.Itoa(len(args)+1)
		args = append(args, status)
	}
	query += " ORDER BY a.requested_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying detailed assignments: %w", err)
	}
	defer rows.Close()

	var responses []entities.AssignmentResponse
	for rows.Next() {
		var resp entities.AssignmentResponse
		if err := rows.Scan(
			&resp.ID, &resp.HospitalID, &resp.DoctorID, &resp.PatientID, &resp.AvailabilitySlotID,
			&resp.Priority, &resp.Status, &resp.RequestedAt, &resp.ExpiresAt, &resp.AcceptedAt,
			&resp.DeclinedAt, &resp.CompletedAt, &resp.CancelledAt, &resp.CancelledBy,
			&resp.CancellationReason, &resp.TreatmentNotes, &resp.ConsultationFee,
			&resp.PatientName, &resp.DoctorName, &resp.HospitalName,
			&resp.SlotDate, &resp.SlotStartTime, &resp.SlotEndTime,
		); err != nil {
			return nil, fmt.Errorf("error scanning detailed assignment: %w", err)
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// CreatePaymentIfAbsent records the payout row for a completed assignment.
// Safe to call twice: the assignment_id unique constraint absorbs repeats.
func (r *AssignmentRepository) CreatePaymentIfAbsent(ctx context.Context, p *db.AssignmentPayment) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO assignment_payments
		(id, assignment_id, hospital_id, doctor_id, consultation_fee, platform_commission, doctor_payout, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (assignment_id) DO NOTHING`,
		p.ID, p.AssignmentID, p.HospitalID, p.DoctorID,
		p.ConsultationFee, p.PlatformCommission, p.DoctorPayout, p.PaymentStatus)
	if err != nil {
		return fmt.Errorf("error recording assignment payment: %w", err)
	}
	return nil
}

// Dashboard projections. These are read-only aggregates over the state
// machine, never stored fields.

func (r *AssignmentRepository) CountByStatuses(ctx context.Context, hospitalID string, statuses []string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assignments
		WHERE hospital_id = $1 AND status = ANY($2)`,
		hospitalID, pq.Array(statuses)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting assignments: %w", err)
	}
	return count, nil
}

func (r *AssignmentRepository) CountCreatedSince(ctx context.Context, hospitalID string, since time.Time) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assignments
		WHERE hospital_id = $1 AND requested_at >= $2`, hospitalID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting monthly assignments: %w", err)
	}
	return count, nil
}

// CountUnassignedPatients counts the hospital's patients with no pending or
// accepted assignment.
func (r *AssignmentRepository) CountUnassignedPatients(ctx context.Context, hospitalID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT p.id)
		FROM patients p
		LEFT JOIN assignments a ON a.patient_id = p.id AND a.status = ANY($2)
		WHERE p.hospital_id = $1 AND a.id IS NULL`,
		hospitalID, pq.Array([]string{db.AssignmentPending, db.AssignmentAccepted})).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting unassigned patients: %w", err)
	}
	return count, nil
}

// CountExpiringSoon counts pending assignments whose deadline falls within
// the next 24 hours from now.
func (r *AssignmentRepository) CountExpiringSoon(ctx context.Context, hospitalID string, now time.Time) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assignments
		WHERE hospital_id = $1 AND status = $2
		  AND expires_at IS NOT NULL AND expires_at <= $3`,
		hospitalID, db.AssignmentPending, now.Add(24*time.Hour)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting expiring assignments: %w", err)
	}
	return count, nil
}

func (r *AssignmentRepository) CountPatients(ctx context.Context, hospitalID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patients WHERE hospital_id = $1`, hospitalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting patients: %w", err)
	}
	return count, nil
}
