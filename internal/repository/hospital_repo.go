package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medmatch/internal/db"
)

type HospitalRepository struct {
	DB *sql.DB
}

func NewHospitalRepository(database *sql.DB) *HospitalRepository {
	return &HospitalRepository{DB: database}
}

func (r *HospitalRepository) GetHospitalByID(ctx context.Context, id string) (*db.Hospital, error) {
	var h db.Hospital
	query := `SELECT id, user_id, name, city, phone, email, created_at FROM hospitals WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&h.ID, &h.UserID, &h.Name, &h.City, &h.Phone, &h.Email, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying hospital %s: %w", id, err)
	}
	return &h, nil
}

func (r *HospitalRepository) GetHospitalByUserID(ctx context.Context, userID string) (*db.Hospital, error) {
	var h db.Hospital
	query := `SELECT id, user_id, name, city, phone, email, created_at FROM hospitals WHERE user_id = $1`
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&h.ID, &h.UserID, &h.Name, &h.City, &h.Phone, &h.Email, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying hospital for user %s: %w", userID, err)
	}
	return &h, nil
}

func (r *HospitalRepository) GetPatientByID(ctx context.Context, id string) (*db.Patient, error) {
	var p db.Patient
	query := `SELECT id, hospital_id, full_name, medical_condition, created_at FROM patients WHERE id = $1`
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.HospitalID, &p.FullName, &p.MedicalCondition, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying patient %s: %w", id, err)
	}
	return &p, nil
}

func (r *HospitalRepository) CreatePatient(ctx context.Context, p *db.Patient) error {
	query := `
		INSERT INTO patients (id, hospital_id, full_name, medical_condition, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`
	return r.DB.QueryRowContext(ctx, query, p.ID, p.HospitalID, p.FullName, p.MedicalCondition).Scan(&p.CreatedAt)
}

// GetActivePlanTier resolves the hospital's current subscription tier. No
// active subscription row means the free tier; the tier string is mapped onto
// the fixed plan enumeration by the caller.
func (r *HospitalRepository) GetActivePlanTier(ctx context.Context, hospitalID string, now time.Time) (string, error) {
	var tier string
	query := `
		SELECT plan_tier FROM subscriptions
		WHERE hospital_id = $1 AND status = 'active'
		  AND (current_period_end IS NULL OR current_period_end > $2)
		ORDER BY created_at DESC
		LIMIT 1`
	err := r.DB.QueryRowContext(ctx, query, hospitalID, now).Scan(&tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "free", nil
		}
		return "", fmt.Errorf("error querying subscription for hospital %s: %w", hospitalID, err)
	}
	return tier, nil
}

// CreatePendingSubscription records a checkout session before the hospital
// completes payment. The webhook activates it.
func (r *HospitalRepository) CreatePendingSubscription(ctx context.Context, s *db.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, hospital_id, plan_tier, status, stripe_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, NOW(), NOW())
		RETURNING created_at, updated_at`
	return r.DB.QueryRowContext(ctx, query, s.ID, s.HospitalID, s.PlanTier, s.StripeSessionID).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *HospitalRepository) ActivateSubscriptionBySessionID(ctx context.Context, sessionID, stripeSubscriptionID string, periodEnd *time.Time) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'active', stripe_subscription_id = $2, current_period_end = $3, updated_at = NOW()
		WHERE stripe_session_id = $1`, sessionID, stripeSubscriptionID, periodEnd)
	if err != nil {
		return fmt.Errorf("error activating subscription for session %s: %w", sessionID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *HospitalRepository) CancelSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE subscriptions SET status = 'cancelled', updated_at = NOW()
		WHERE stripe_subscription_id = $1`, stripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("error cancelling subscription %s: %w", stripeSubscriptionID, err)
	}
	return nil
}
