package service

import (
	"context"
	"os"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"
	apperrors "medmatch/internal/errors"
	"medmatch/internal/repository"
	"medmatch/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	Repo         *repository.AuthRepository
	DoctorRepo   *repository.DoctorRepository
	HospitalRepo *repository.HospitalRepository
	now          func() time.Time
}

func NewAuthService(repo *repository.AuthRepository, doctorRepo *repository.DoctorRepository, hospitalRepo *repository.HospitalRepository) *AuthService {
	return &AuthService{Repo: repo, DoctorRepo: doctorRepo, HospitalRepo: hospitalRepo, now: time.Now}
}

// Login verifies credentials and issues a JWT carrying the user's role and
// profile id, so handlers never hit the database to resolve the actor.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entities.LoginResponse, error) {
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	profileID, err := s.profileIDFor(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.issueToken(user, profileID)
	if err != nil {
		return nil, err
	}
	return &entities.LoginResponse{
		Token:     token,
		Role:      user.Role,
		ProfileID: profileID,
	}, nil
}

// RegisterDoctor creates the user account and doctor profile atomically.
func (s *AuthService) RegisterDoctor(ctx context.Context, req *entities.RegisterDoctorRequest) (*entities.LoginResponse, error) {
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return nil, err
	}
	if req.FirstName == "" || req.LastName == "" || req.Specialty == "" {
		return nil, apperrors.Validation("first_name, last_name and specialty are required")
	}
	if err := s.requireFreeEmail(ctx, req.Email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "doctor",
	}
	fee := req.ConsultationFee
	if fee <= 0 {
		fee = utils.DefaultConsultationFee(req.YearsOfExperience)
	}
	doctor := &db.Doctor{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Specialty:         req.Specialty,
		YearsOfExperience: req.YearsOfExperience,
		ConsultationFee:   fee,
		Phone:             req.Phone,
		Email:             req.Email,
	}
	if err := s.Repo.CreateDoctorUser(ctx, user, doctor); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user, doctor.ID)
	if err != nil {
		return nil, err
	}
	return &entities.LoginResponse{Token: token, Role: user.Role, ProfileID: doctor.ID}, nil
}

// RegisterHospital mirrors RegisterDoctor for the hospital role.
func (s *AuthService) RegisterHospital(ctx context.Context, req *entities.RegisterHospitalRequest) (*entities.LoginResponse, error) {
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, apperrors.Validation("name is required")
	}
	if err := s.requireFreeEmail(ctx, req.Email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "hospital",
	}
	hospital := &db.Hospital{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Name:   req.Name,
		City:   req.City,
		Phone:  req.Phone,
		Email:  req.Email,
	}
	if err := s.Repo.CreateHospitalUser(ctx, user, hospital); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user, hospital.ID)
	if err != nil {
		return nil, err
	}
	return &entities.LoginResponse{Token: token, Role: user.Role, ProfileID: hospital.ID}, nil
}

func (s *AuthService) requireFreeEmail(ctx context.Context, email string) error {
	existing, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.Conflict("email is already registered")
	}
	return nil
}

func (s *AuthService) profileIDFor(ctx context.Context, user *db.User) (string, error) {
	switch user.Role {
	case "doctor":
		doctor, err := s.DoctorRepo.GetDoctorByUserID(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if doctor == nil {
			return "", apperrors.Unauthorized("doctor profile not found")
		}
		return doctor.ID, nil
	case "hospital":
		hospital, err := s.HospitalRepo.GetHospitalByUserID(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if hospital == nil {
			return "", apperrors.Unauthorized("hospital profile not found")
		}
		return hospital.ID, nil
	}
	return "", apperrors.Unauthorized("unknown role")
}

func (s *AuthService) issueToken(user *db.User, profileID string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", apperrors.NewHTTPError(500, "server_error", "JWT_SECRET not set")
	}

	claims := jwt.MapClaims{
		"user_id":    user.ID,
		"role":       user.Role,
		"profile_id": profileID,
		"exp":        s.now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperrors.Validation("email and password are required")
	}
	if len(password) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
