package entities

import "time"

type TemplateRequest struct {
	TemplateName      string   `json:"template_name"`
	StartTime         string   `json:"start_time"`
	EndTime           string   `json:"end_time"`
	RecurrencePattern string   `json:"recurrence_pattern"`
	RecurrenceDays    []string `json:"recurrence_days,omitempty"`
	ValidFrom         string   `json:"valid_from"`
	ValidUntil        *string  `json:"valid_until,omitempty"`
}

type TemplateResponse struct {
	ID                string   `json:"id"`
	DoctorID          string   `json:"doctor_id"`
	TemplateName      string   `json:"template_name"`
	StartTime         string   `json:"start_time"`
	EndTime           string   `json:"end_time"`
	RecurrencePattern string   `json:"recurrence_pattern"`
	RecurrenceDays    []string `json:"recurrence_days"`
	ValidFrom         string   `json:"valid_from"`
	ValidUntil        *string  `json:"valid_until,omitempty"`
}

type SlotRequest struct {
	SlotDate  string `json:"slot_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes,omitempty"`
}

type SlotResponse struct {
	ID                 string     `json:"id"`
	DoctorID           string     `json:"doctor_id"`
	SlotDate           string     `json:"slot_date"`
	StartTime          string     `json:"start_time"`
	EndTime            string     `json:"end_time"`
	Status             string     `json:"status"`
	BookedByHospitalID *string    `json:"booked_by_hospital_id,omitempty"`
	BookedAt           *time.Time `json:"booked_at,omitempty"`
	IsManual           bool       `json:"is_manual"`
	Notes              string     `json:"notes,omitempty"`
}

// MaterializationSummary reports what the template-to-slot generation job did.
type MaterializationSummary struct {
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	TemplatesProcessed int    `json:"templates_processed"`
	SlotsCreated       int    `json:"slots_created"`
	SkippedExisting    int    `json:"skipped_existing"`
}
