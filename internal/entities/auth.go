package entities

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ProfileID string `json:"profile_id"`
}

type RegisterDoctorRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Specialty         string `json:"specialty"`
	YearsOfExperience int    `json:"years_of_experience"`
	ConsultationFee   int    `json:"consultation_fee,omitempty"`
	Phone             string `json:"phone"`
}

type RegisterHospitalRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Phone    string `json:"phone"`
}
