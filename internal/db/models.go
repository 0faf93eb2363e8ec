package db

import "time"

// Status values for availability slots.
const (
	SlotAvailable = "available"
	SlotBooked    = "booked"
	SlotBlocked   = "blocked"
)

// Status values for assignments.
const (
	AssignmentPending   = "pending"
	AssignmentAccepted  = "accepted"
	AssignmentDeclined  = "declined"
	AssignmentCompleted = "completed"
	AssignmentCancelled = "cancelled"
)

// Priority values for assignments.
const (
	PriorityRoutine   = "routine"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string // "doctor" or "hospital"
	CreatedAt    time.Time
}

type Doctor struct {
	ID                   string
	UserID               string
	FirstName            string
	LastName             string
	Specialty            string
	YearsOfExperience    int
	AverageRating        float64
	CompletedAssignments int
	ConsultationFee      int
	Phone                string
	Email                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Hospital struct {
	ID        string
	UserID    string
	Name      string
	City      string
	Phone     string
	Email     string
	CreatedAt time.Time
}

type Patient struct {
	ID               string
	HospitalID       string
	FullName         string
	MedicalCondition string
	CreatedAt        time.Time
}

// AvailabilityTemplate is a recurring schedule rule owned by one doctor.
// Times are 24-hour "HH:mm" strings and the validity window is a pair of
// "YYYY-MM-DD" calendar dates, ValidUntil nil meaning open-ended. Both are
// stored and compared verbatim, no timezone arithmetic.
type AvailabilityTemplate struct {
	ID                string
	DoctorID          string
	TemplateName      string
	StartTime         string
	EndTime           string
	RecurrencePattern string // "daily", "weekly", "custom" or "monthly"
	RecurrenceDays    []string
	ValidFrom         string
	ValidUntil        *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AvailabilitySlot is one concrete bookable date+time interval for a doctor,
// either created by hand or materialized from a template.
type AvailabilitySlot struct {
	ID                 string
	DoctorID           string
	TemplateID         *string
	SlotDate           string
	StartTime          string
	EndTime            string
	Status             string
	BookedByHospitalID *string
	BookedAt           *time.Time
	IsManual           bool
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Assignment links one hospital, one doctor, one patient and optionally one
// availability slot. ExpiresAt is only meaningful while Status is pending.
type Assignment struct {
	ID                 string
	HospitalID         string
	DoctorID           string
	PatientID          string
	AvailabilitySlotID *string
	Priority           string
	Status             string
	RequestedAt        time.Time
	ExpiresAt          *time.Time
	AcceptedAt         *time.Time
	DeclinedAt         *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancelledBy        *string // "doctor", "hospital" or "system"
	CancellationReason *string
	TreatmentNotes     *string
	ConsultationFee    int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Subscription struct {
	ID                   string
	HospitalID           string
	PlanTier             string
	Status               string
	StripeSessionID      string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type AssignmentPayment struct {
	ID                 string
	AssignmentID       string
	HospitalID         string
	DoctorID           string
	ConsultationFee    int
	PlatformCommission int
	DoctorPayout       int
	PaymentStatus      string
	CreatedAt          time.Time
}
