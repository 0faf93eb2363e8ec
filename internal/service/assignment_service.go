package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"medmatch/internal/db"
	"medmatch/internal/entities"
	apperrors "medmatch/internal/errors"
	"medmatch/internal/repository"
	"medmatch/internal/utils"

	"github.com/google/uuid"
)

// Response deadlines per priority. An emergency request goes stale within the
// hour; a routine one gives the doctor a full day.
var expiryWindows = map[string]time.Duration{
	db.PriorityRoutine:   24 * time.Hour,
	db.PriorityUrgent:    6 * time.Hour,
	db.PriorityEmergency: 1 * time.Hour,
}

type AssignmentService struct {
	Repo         *repository.AssignmentRepository
	DoctorRepo   *repository.DoctorRepository
	HospitalRepo *repository.HospitalRepository
	Sender       *SenderService
	now          func() time.Time
}

func NewAssignmentService(
	repo *repository.AssignmentRepository,
	doctorRepo *repository.DoctorRepository,
	hospitalRepo *repository.HospitalRepository,
	sender *SenderService,
) *AssignmentService {
	return &AssignmentService{
		Repo:         repo,
		DoctorRepo:   doctorRepo,
		HospitalRepo: hospitalRepo,
		Sender:       sender,
		now:          time.Now,
	}
}

// Create books a doctor for a patient. The hospital's subscription plan is
// checked against the doctor's derived tier before anything is written, and
// when a slot is attached the insert and the slot claim commit atomically.
func (s *AssignmentService) Create(ctx context.Context, hospitalID string, req *entities.AssignmentRequest) (*entities.AssignmentResponse, error) {
	window, ok := expiryWindows[req.Priority]
	if !ok {
		return nil, apperrors.Validation("priority must be routine, urgent or emergency")
	}

	patient, err := s.HospitalRepo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if patient == nil || patient.HospitalID != hospitalID {
		return nil, apperrors.NotFound("patient not found")
	}

	doctor, err := s.DoctorRepo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, apperrors.NotFound("doctor not found")
	}

	now := s.now()

	planTier, err := s.HospitalRepo.GetActivePlanTier(ctx, hospitalID, now)
	if err != nil {
		return nil, err
	}
	plan, err := utils.ParseHospitalPlan(planTier)
	if err != nil {
		return nil, err
	}
	tier := utils.DeriveDoctorTier(doctor.AverageRating, doctor.YearsOfExperience, doctor.CompletedAssignments)
	required := tier.RequiredPlan()
	if !utils.HasAccess(plan, required) {
		return nil, apperrors.AccessDenied(fmt.Sprintf(
			"your %s plan cannot book a %s tier doctor, %s plan required", plan, tier, required))
	}

	var slot *db.AvailabilitySlot
	if req.AvailabilitySlotID != nil {
		slot, err = s.DoctorRepo.GetSlotByID(ctx, *req.AvailabilitySlotID)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			return nil, apperrors.NotFound("availability slot not found")
		}
		if slot.DoctorID != doctor.ID {
			return nil, apperrors.Validation("availability slot does not belong to the requested doctor")
		}
		if slot.Status != db.SlotAvailable {
			return nil, apperrors.Conflict("availability slot is no longer available")
		}
	}

	fee := req.ConsultationFee
	if fee <= 0 {
		fee = doctor.ConsultationFee
	}
	if fee <= 0 {
		fee = utils.DefaultConsultationFee(doctor.YearsOfExperience)
	}

	expiresAt := now.Add(window)
	assignment := &db.Assignment{
		ID:                 uuid.NewString(),
		HospitalID:         hospitalID,
		DoctorID:           doctor.ID,
		PatientID:          patient.ID,
		AvailabilitySlotID: req.AvailabilitySlotID,
		Priority:           req.Priority,
		Status:             db.AssignmentPending,
		RequestedAt:        now,
		ExpiresAt:          &expiresAt,
		ConsultationFee:    fee,
	}

	if err := s.Repo.CreateWithSlotClaim(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperrors.Conflict("availability slot is no longer available")
		}
		return nil, err
	}

	s.notifyDoctor(ctx, doctor, patient.FullName, assignment, slot, "")
	return s.toResponse(assignment), nil
}

// UpdateStatus drives the assignment state machine. The caller's role decides
// which transitions are allowed: doctors accept, decline and complete their
// own assignments; hospitals and doctors can both cancel.
func (s *AssignmentService) UpdateStatus(ctx context.Context, actorRole, actorProfileID, assignmentID string, req *entities.AssignmentStatusRequest) (*entities.AssignmentResponse, error) {
	assignment, err := s.Repo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, apperrors.NotFound("assignment not found")
	}

	switch req.Status {
	case db.AssignmentAccepted:
		err = s.accept(ctx, actorRole, actorProfileID, assignment)
	case db.AssignmentDeclined:
		err = s.decline(ctx, actorRole, actorProfileID, assignment, req.CancellationReason)
	case db.AssignmentCompleted:
		err = s.complete(ctx, actorRole, actorProfileID, assignment, req.TreatmentNotes)
	case db.AssignmentCancelled:
		err = s.cancel(ctx, actorRole, actorProfileID, assignment, req.CancellationReason)
	default:
		err = apperrors.Validation("status must be accepted, declined, completed or cancelled")
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	s.notifyStatusChange(ctx, updated)
	return s.toResponse(updated), nil
}

func (s *AssignmentService) accept(ctx context.Context, actorRole, actorProfileID string, a *db.Assignment) error {
	if err := requireOwnDoctor(actorRole, actorProfileID, a); err != nil {
		return err
	}
	if a.Status != db.AssignmentPending {
		return apperrors.InvalidTransition(
			fmt.Sprintf("only pending assignments can be accepted, current status is %s", a.Status))
	}
	if a.ExpiresAt != nil && !s.now().Before(*a.ExpiresAt) {
		return apperrors.Expired("assignment has expired and can no longer be accepted")
	}
	if err := s.Repo.MarkAccepted(ctx, a.ID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.InvalidTransition("assignment is no longer pending")
		}
		return err
	}
	return nil
}

func (s *AssignmentService) decline(ctx context.Context, actorRole, actorProfileID string, a *db.Assignment, reason string) error {
	if err := requireOwnDoctor(actorRole, actorProfileID, a); err != nil {
		return err
	}
	if a.Status != db.AssignmentPending {
		return apperrors.InvalidTransition(
			fmt.Sprintf("only pending assignments can be declined, current status is %s", a.Status))
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.Repo.MarkDeclined(ctx, a.ID, s.now(), reasonPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.InvalidTransition("assignment is no longer pending")
		}
		return err
	}
	s.releaseSlotIfHeld(ctx, a)
	return nil
}

func (s *AssignmentService) complete(ctx context.Context, actorRole, actorProfileID string, a *db.Assignment, notes string) error {
	if err := requireOwnDoctor(actorRole, actorProfileID, a); err != nil {
		return err
	}
	if a.Status != db.AssignmentAccepted {
		return apperrors.InvalidTransition(
			fmt.Sprintf("only accepted assignments can be completed, current status is %s", a.Status))
	}
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}
	if err := s.Repo.MarkCompleted(ctx, a.ID, s.now(), notesPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.InvalidTransition("assignment is no longer accepted")
		}
		return err
	}

	// The platform takes no commission on completed assignments; the payout
	// row exists for bookkeeping and is safe to re-create.
	payment := &db.AssignmentPayment{
		ID:              uuid.NewString(),
		AssignmentID:    a.ID,
		HospitalID:      a.HospitalID,
		DoctorID:        a.DoctorID,
		ConsultationFee: a.ConsultationFee,
		DoctorPayout:    a.ConsultationFee,
		PaymentStatus:   "pending",
	}
	if err := s.Repo.CreatePaymentIfAbsent(ctx, payment); err != nil {
		log.Printf("Assignment %s completed but payment record failed: %v", a.ID, err)
	}
	return nil
}

func (s *AssignmentService) cancel(ctx context.Context, actorRole, actorProfileID string, a *db.Assignment, reason string) error {
	switch actorRole {
	case "doctor":
		if a.DoctorID != actorProfileID {
			return apperrors.AccessDenied("assignment belongs to another doctor")
		}
	case "hospital":
		if a.HospitalID != actorProfileID {
			return apperrors.AccessDenied("assignment belongs to another hospital")
		}
	default:
		return apperrors.AccessDenied("only the doctor or the hospital can cancel an assignment")
	}

	if a.Status != db.AssignmentPending && a.Status != db.AssignmentAccepted {
		return apperrors.InvalidTransition(
			fmt.Sprintf("only pending or accepted assignments can be cancelled, current status is %s", a.Status))
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if err := s.Repo.MarkCancelled(ctx, a.ID, s.now(), actorRole, reasonPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.InvalidTransition("assignment can no longer be cancelled")
		}
		return err
	}
	s.releaseSlotIfHeld(ctx, a)
	return nil
}

func requireOwnDoctor(actorRole, actorProfileID string, a *db.Assignment) error {
	if actorRole != "doctor" {
		return apperrors.AccessDenied("only the assigned doctor can perform this transition")
	}
	if a.DoctorID != actorProfileID {
		return apperrors.AccessDenied("assignment belongs to another doctor")
	}
	return nil
}

func (s *AssignmentService) releaseSlotIfHeld(ctx context.Context, a *db.Assignment) {
	if a.AvailabilitySlotID == nil {
		return
	}
	if err := s.Repo.ReleaseSlot(ctx, *a.AvailabilitySlotID); err != nil {
		log.Printf("Failed to release slot %s for assignment %s: %v", *a.AvailabilitySlotID, a.ID, err)
	}
}

func (s *AssignmentService) ListForDoctor(ctx context.Context, doctorID, status string) ([]entities.AssignmentResponse, error) {
	responses, err := s.Repo.ListDetailedByDoctor(ctx, doctorID, status)
	if err != nil {
		return nil, err
	}
	s.applyDisplayStatus(responses)
	return responses, nil
}

func (s *AssignmentService) ListForHospital(ctx context.Context, hospitalID, status string) ([]entities.AssignmentResponse, error) {
	responses, err := s.Repo.ListDetailedByHospital(ctx, hospitalID, status)
	if err != nil {
		return nil, err
	}
	s.applyDisplayStatus(responses)
	return responses, nil
}

func (s *AssignmentService) Get(ctx context.Context, actorRole, actorProfileID, assignmentID string) (*entities.AssignmentResponse, error) {
	assignment, err := s.Repo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, apperrors.NotFound("assignment not found")
	}
	switch actorRole {
	case "doctor":
		if assignment.DoctorID != actorProfileID {
			return nil, apperrors.NotFound("assignment not found")
		}
	case "hospital":
		if assignment.HospitalID != actorProfileID {
			return nil, apperrors.NotFound("assignment not found")
		}
	}
	return s.toResponse(assignment), nil
}

// Dashboard aggregates a hospital's workload into the counters and pending
// actions its landing page shows. Everything here is derived at read time.
func (s *AssignmentService) Dashboard(ctx context.Context, hospitalID string) (*entities.DashboardResponse, error) {
	now := s.now()

	totalPatients, err := s.Repo.CountPatients(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	active, err := s.Repo.CountByStatuses(ctx, hospitalID, []string{db.AssignmentAccepted})
	if err != nil {
		return nil, err
	}
	pending, err := s.Repo.CountByStatuses(ctx, hospitalID, []string{db.AssignmentPending})
	if err != nil {
		return nil, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthly, err := s.Repo.CountCreatedSince(ctx, hospitalID, monthStart)
	if err != nil {
		return nil, err
	}

	response := &entities.DashboardResponse{
		TotalPatients:      totalPatients,
		ActiveAssignments:  active,
		PendingAssignments: pending,
		MonthlyAssignments: monthly,
		PendingActions:     []entities.PendingAction{},
	}

	unassigned, err := s.Repo.CountUnassignedPatients(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if unassigned > 0 {
		response.PendingActions = append(response.PendingActions, entities.PendingAction{
			Type:    "unassigned_patients",
			Count:   unassigned,
			Message: fmt.Sprintf("%d patients have no active assignment", unassigned),
		})
	}

	declined, err := s.Repo.CountByStatuses(ctx, hospitalID, []string{db.AssignmentDeclined})
	if err != nil {
		return nil, err
	}
	if declined > 0 {
		response.PendingActions = append(response.PendingActions, entities.PendingAction{
			Type:    "declined_assignments",
			Count:   declined,
			Message: fmt.Sprintf("%d assignments were declined and need reassignment", declined),
		})
	}

	expiring, err := s.Repo.CountExpiringSoon(ctx, hospitalID, now)
	if err != nil {
		return nil, err
	}
	if expiring > 0 {
		response.PendingActions = append(response.PendingActions, entities.PendingAction{
			Type:    "expiring_assignments",
			Count:   expiring,
			Message: fmt.Sprintf("%d pending assignments expire within 24 hours", expiring),
		})
	}

	return response, nil
}

// DisplayStatus derives the read-time state: a pending assignment at or past
// its deadline reads as expired even before the sweep cancels it.
func (s *AssignmentService) DisplayStatus(status string, expiresAt *time.Time) string {
	if status == db.AssignmentPending && expiresAt != nil && !s.now().Before(*expiresAt) {
		return "expired"
	}
	return status
}

func (s *AssignmentService) applyDisplayStatus(responses []entities.AssignmentResponse) {
	for i := range responses {
		responses[i].DisplayStatus = s.DisplayStatus(responses[i].Status, responses[i].ExpiresAt)
	}
}

func (s *AssignmentService) toResponse(a *db.Assignment) *entities.AssignmentResponse {
	return &entities.AssignmentResponse{
		ID:                 a.ID,
		HospitalID:         a.HospitalID,
		DoctorID:           a.DoctorID,
		PatientID:          a.PatientID,
		AvailabilitySlotID: a.AvailabilitySlotID,
		Priority:           a.Priority,
		Status:             a.Status,
		DisplayStatus:      s.DisplayStatus(a.Status, a.ExpiresAt),
		RequestedAt:        a.RequestedAt,
		ExpiresAt:          a.ExpiresAt,
		AcceptedAt:         a.AcceptedAt,
		DeclinedAt:         a.DeclinedAt,
		CompletedAt:        a.CompletedAt,
		CancelledAt:        a.CancelledAt,
		CancelledBy:        a.CancelledBy,
		CancellationReason: a.CancellationReason,
		TreatmentNotes:     a.TreatmentNotes,
		ConsultationFee:    a.ConsultationFee,
	}
}

func (s *AssignmentService) notifyDoctor(ctx context.Context, doctor *db.Doctor, patientName string, a *db.Assignment, slot *db.AvailabilitySlot, reason string) {
	if s.Sender == nil {
		return
	}
	hospital, err := s.HospitalRepo.GetHospitalByID(ctx, a.HospitalID)
	if err != nil || hospital == nil {
		log.Printf("Could not load hospital %s for notification: %v", a.HospitalID, err)
		return
	}
	data := entities.AssignmentEmailData{
		RecipientName: doctor.FirstName + " " + doctor.LastName,
		PatientName:   patientName,
		DoctorName:    doctor.FirstName + " " + doctor.LastName,
		HospitalName:  hospital.Name,
		Status:        a.Status,
		Priority:      a.Priority,
		Reason:        reason,
		CurrentYear:   s.now().Year(),
	}
	if slot != nil {
		data.SlotDate = slot.SlotDate
		data.SlotTime = slot.StartTime + " - " + slot.EndTime
	}
	s.Sender.NotifyAssignment(doctor.Email, doctor.Phone, data)
}

func (s *AssignmentService) notifyStatusChange(ctx context.Context, a *db.Assignment) {
	if s.Sender == nil || a == nil {
		return
	}
	hospital, err := s.HospitalRepo.GetHospitalByID(ctx, a.HospitalID)
	if err != nil || hospital == nil {
		log.Printf("Could not load hospital %s for notification: %v", a.HospitalID, err)
		return
	}
	doctor, err := s.DoctorRepo.GetDoctorByID(ctx, a.DoctorID)
	if err != nil || doctor == nil {
		log.Printf("Could not load doctor %s for notification: %v", a.DoctorID, err)
		return
	}
	patient, err := s.HospitalRepo.GetPatientByID(ctx, a.PatientID)
	if err != nil || patient == nil {
		log.Printf("Could not load patient %s for notification: %v", a.PatientID, err)
		return
	}

	reason := ""
	if a.CancellationReason != nil {
		reason = *a.CancellationReason
	}
	data := entities.AssignmentEmailData{
		RecipientName: hospital.Name,
		PatientName:   patient.FullName,
		DoctorName:    doctor.FirstName + " " + doctor.LastName,
		HospitalName:  hospital.Name,
		Status:        a.Status,
		Priority:      a.Priority,
		Reason:        reason,
		CurrentYear:   s.now().Year(),
	}
	s.Sender.NotifyAssignment(hospital.Email, hospital.Phone, data)
}
