package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// ExpiredPending is the projection the sweep needs: the assignment plus the
// slot it is holding, if any.
type ExpiredPending struct {
	AssignmentID string
	SlotID       *string
}

// GetExpiredPendingAssignments lists pending assignments whose response
// deadline has passed.
func (r *JobRepository) GetExpiredPendingAssignments(ctx context.Context, now time.Time) ([]ExpiredPending, error) {
	query := `
		SELECT id, availability_slot_id FROM assignments
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at <= $1`
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("error querying expired pending assignments: %w", err)
	}
	defer rows.Close()

	var expired []ExpiredPending
	for rows.Next() {
		var e ExpiredPending
		if err := rows.Scan(&e.AssignmentID, &e.SlotID); err != nil {
			return nil, fmt.Errorf("error scanning expired assignment: %w", err)
		}
		expired = append(expired, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return expired, nil
}

// CancelAssignmentsBySystem bulk-cancels a list of assignments on behalf of
// the platform. The pending guard keeps the sweep from clobbering a
// transition that raced in between the read and the update.
func (r *JobRepository) CancelAssignmentsBySystem(ctx context.Context, ids []string, at time.Time, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE assignments
		SET status = 'cancelled', cancelled_at = $1, cancelled_by = 'system',
		    cancellation_reason = $2, updated_at = NOW()
		WHERE id = ANY($3) AND status = 'pending'`
	result, err := r.DB.ExecContext(ctx, query, at, reason, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error cancelling expired assignments: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Could not get rows affected: %v", err)
	} else {
		log.Printf("Cancelled %d expired pending assignments", rowsAffected)
	}
	return nil
}

// ReleaseSlots puts a batch of booked slots back on the market.
func (r *JobRepository) ReleaseSlots(ctx context.Context, slotIDs []string) error {
	if len(slotIDs) == 0 {
		return nil
	}
	query := `
		UPDATE availability_slots
		SET status = 'available', booked_by_hospital_id = NULL, booked_at = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'booked'`
	_, err := r.DB.ExecContext(ctx, query, pq.Array(slotIDs))
	if err != nil {
		return fmt.Errorf("error releasing slots: %w", err)
	}
	return nil
}
