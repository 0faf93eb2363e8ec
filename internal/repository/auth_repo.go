package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medmatch/internal/db"
)

type AuthRepository struct {
	DB *sql.DB
}

func NewAuthRepository(database *sql.DB) *AuthRepository {
	return &AuthRepository{DB: database}
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	query := `SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`
	err := r.DB.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying user by email: %w", err)
	}
	return &u, nil
}

// CreateDoctorUser inserts the user row and its doctor profile in one
// transaction so a half-registered account can never exist.
func (r *AuthRepository) CreateDoctorUser(ctx context.Context, u *db.User, d *db.Doctor) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}

	insert := `
		INSERT INTO doctors
		(id, user_id, first_name, last_name, specialty, years_of_experience,
		 average_rating, completed_assignments, consultation_fee, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = tx.QueryRowContext(ctx, insert,
		d.ID, d.UserID, d.FirstName, d.LastName, d.Specialty, d.YearsOfExperience,
		d.AverageRating, d.CompletedAssignments, d.ConsultationFee, d.Phone, d.Email,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting doctor profile: %w", err)
	}

	return tx.Commit()
}

// CreateHospitalUser mirrors CreateDoctorUser for the hospital role.
func (r *AuthRepository) CreateHospitalUser(ctx context.Context, u *db.User, h *db.Hospital) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}

	insert := `
		INSERT INTO hospitals (id, user_id, name, city, phone, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`
	err = tx.QueryRowContext(ctx, insert,
		h.ID, h.UserID, h.Name, h.City, h.Phone, h.Email,
	).Scan(&h.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting hospital profile: %w", err)
	}

	return tx.Commit()
}

func insertUser(ctx context.Context, tx *sql.Tx, u *db.User) error {
	insert := `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`
	err := tx.QueryRowContext(ctx, insert, u.ID, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}
