package entities

// DoctorSearchResult is one row of a hospital's find-doctors search, annotated
// with the derived tier and whether the hospital's plan can book this doctor.
type DoctorSearchResult struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Specialty            string   `json:"specialty"`
	Tier                 string   `json:"tier"`
	RequiredPlan         string   `json:"required_plan"`
	Accessible           bool     `json:"accessible"`
	YearsOfExperience    int      `json:"years_of_experience"`
	Rating               float64  `json:"rating"`
	CompletedAssignments int      `json:"completed_assignments"`
	ConsultationFee      int      `json:"consultation_fee"`
	AvailableSlots       []string `json:"available_slots"`
}

type SearchResponse struct {
	Doctors              []DoctorSearchResult `json:"doctors"`
	HospitalSubscription string               `json:"hospital_subscription"`
}
