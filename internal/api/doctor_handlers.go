package api

import (
	"encoding/json"
	"net/http"

	"medmatch/internal/auth"
	"medmatch/internal/entities"
	"medmatch/internal/service"

	"github.com/gorilla/mux"
)

// DoctorHandler serves the doctor-side surface: availability templates,
// concrete slots and the doctor's assignment list.
type DoctorHandler struct {
	Schedule    *service.ScheduleService
	Assignments *service.AssignmentService
}

func NewDoctorHandler(schedule *service.ScheduleService, assignments *service.AssignmentService) *DoctorHandler {
	return &DoctorHandler{Schedule: schedule, Assignments: assignments}
}

func (h *DoctorHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Schedule.CreateTemplate(r.Context(), actor.ProfileID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *DoctorHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	resp, err := h.Schedule.ListTemplates(r.Context(), actor.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DoctorHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	templateID := mux.Vars(r)["id"]
	var req entities.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Schedule.UpdateTemplate(r.Context(), actor.ProfileID, templateID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DoctorHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	templateID := mux.Vars(r)["id"]
	if err := h.Schedule.DeleteTemplate(r.Context(), actor.ProfileID, templateID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Template deleted"})
}

func (h *DoctorHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.SlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Schedule.CreateSlot(r.Context(), actor.ProfileID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *DoctorHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	resp, err := h.Schedule.ListSlots(r.Context(), actor.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DoctorHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	slotID := mux.Vars(r)["id"]
	var req entities.SlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Schedule.UpdateSlot(r.Context(), actor.ProfileID, slotID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DoctorHandler) BlockSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	slotID := mux.Vars(r)["id"]
	resp, err := h.Schedule.BlockSlot(r.Context(), actor.ProfileID, slotID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DoctorHandler) UnblockSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	slotID := mux.Vars(r)["id"]
	resp, err := h.Schedule.UnblockSlot(r.Context(), actor.ProfileID, slotID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DoctorHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	slotID := mux.Vars(r)["id"]
	if err := h.Schedule.DeleteSlot(r.Context(), actor.ProfileID, slotID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Slot deleted"})
}

func (h *DoctorHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	status := r.URL.Query().Get("status")
	resp, err := h.Assignments.ListForDoctor(r.Context(), actor.ProfileID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
