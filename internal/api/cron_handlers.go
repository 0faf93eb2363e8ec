package api

import (
	"net/http"
	"os"
	"strconv"

	"medmatch/internal/service"
)

// CronHandler exposes the background jobs over HTTP so an external scheduler
// or an operator can trigger them by hand. Guarded by a shared secret header
// instead of a user token.
type CronHandler struct {
	Jobs *service.JobService
}

func NewCronHandler(jobs *service.JobService) *CronHandler {
	return &CronHandler{Jobs: jobs}
}

func (h *CronHandler) requireSecret(w http.ResponseWriter, r *http.Request) bool {
	secret := os.Getenv("CRON_SECRET")
	if secret == "" || r.Header.Get("x-cron-secret") != secret {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (h *CronHandler) ExpireAssignments(w http.ResponseWriter, r *http.Request) {
	if !h.requireSecret(w, r) {
		return
	}
	cancelled, err := h.Jobs.ExpirePendingAssignments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}

func (h *CronHandler) MaterializeSlots(w http.ResponseWriter, r *http.Request) {
	if !h.requireSecret(w, r) {
		return
	}
	horizon := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		horizon = n
	}
	summary, err := h.Jobs.MaterializeUpcomingSlots(r.Context(), horizon)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
