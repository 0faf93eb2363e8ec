package entities

type PendingAction struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type DashboardResponse struct {
	TotalPatients      int             `json:"total_patients"`
	ActiveAssignments  int             `json:"active_assignments"`
	PendingAssignments int             `json:"pending_assignments"`
	MonthlyAssignments int             `json:"monthly_assignments"`
	PendingActions     []PendingAction `json:"pending_actions"`
}
