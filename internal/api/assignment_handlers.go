package api

import (
	"encoding/json"
	"net/http"

	"medmatch/internal/auth"
	"medmatch/internal/entities"
	"medmatch/internal/service"

	"github.com/gorilla/mux"
)

type AssignmentHandler struct {
	Service *service.AssignmentService
}

func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{Service: svc}
}

// Create books a doctor for a patient. Hospital only.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Service.Create(r.Context(), actor.ProfileID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	assignmentID := mux.Vars(r)["id"]
	resp, err := h.Service.Get(r.Context(), actor.Role, actor.ProfileID, assignmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus drives the accept/decline/complete/cancel transitions. Which
// of them the caller may perform depends on their role and ownership; the
// service decides.
func (h *AssignmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	assignmentID := mux.Vars(r)["id"]
	var req entities.AssignmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Service.UpdateStatus(r.Context(), actor.Role, actor.ProfileID, assignmentID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
