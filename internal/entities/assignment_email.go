package entities

type AssignmentEmailData struct {
	RecipientName string
	PatientName   string
	DoctorName    string
	HospitalName  string
	Status        string
	Priority      string
	SlotDate      string
	SlotTime      string
	Reason        string
	CurrentYear   int
}
