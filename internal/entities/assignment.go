package entities

import "time"

type AssignmentRequest struct {
	PatientID          string  `json:"patient_id"`
	DoctorID           string  `json:"doctor_id"`
	AvailabilitySlotID *string `json:"availability_slot_id,omitempty"`
	Priority           string  `json:"priority"`
	ConsultationFee    int     `json:"consultation_fee"`
}

type AssignmentStatusRequest struct {
	Status             string `json:"status"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	TreatmentNotes     string `json:"treatment_notes,omitempty"`
}

type AssignmentResponse struct {
	ID                 string     `json:"id"`
	HospitalID         string     `json:"hospital_id"`
	DoctorID           string     `json:"doctor_id"`
	PatientID          string     `json:"patient_id"`
	AvailabilitySlotID *string    `json:"availability_slot_id,omitempty"`
	Priority           string     `json:"priority"`
	Status             string     `json:"status"`
	// DisplayStatus is the read-time derived state: "expired" for a pending
	// assignment whose deadline has passed, otherwise equal to Status.
	DisplayStatus      string     `json:"display_status"`
	RequestedAt        time.Time  `json:"requested_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt         *time.Time `json:"declined_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        *string    `json:"cancelled_by,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	TreatmentNotes     *string    `json:"treatment_notes,omitempty"`
	ConsultationFee    int        `json:"consultation_fee"`
	PatientName        string     `json:"patient_name,omitempty"`
	DoctorName         string     `json:"doctor_name,omitempty"`
	HospitalName       string     `json:"hospital_name,omitempty"`
	SlotDate           *string    `json:"slot_date,omitempty"`
	SlotStartTime      *string    `json:"slot_start_time,omitempty"`
	SlotEndTime        *string    `json:"slot_end_time,omitempty"`
}
