package api

import (
	"encoding/json"
	"net/http"

	"medmatch/internal/auth"
	"medmatch/internal/db"
	"medmatch/internal/entities"
	"medmatch/internal/repository"
	"medmatch/internal/service"

	"github.com/google/uuid"
)

// HospitalHandler serves the hospital-side surface: doctor search, patients,
// the dashboard and subscription checkout.
type HospitalHandler struct {
	Search        *service.SearchService
	Assignments   *service.AssignmentService
	Subscriptions *service.SubscriptionService
	HospitalRepo  *repository.HospitalRepository
}

func NewHospitalHandler(search *service.SearchService, assignments *service.AssignmentService, subscriptions *service.SubscriptionService, hospitalRepo *repository.HospitalRepository) *HospitalHandler {
	return &HospitalHandler{Search: search, Assignments: assignments, Subscriptions: subscriptions, HospitalRepo: hospitalRepo}
}

func (h *HospitalHandler) FindDoctors(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	specialty := r.URL.Query().Get("specialty")
	date := r.URL.Query().Get("date")
	resp, err := h.Search.FindDoctors(r.Context(), actor.ProfileID, specialty, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HospitalHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	status := r.URL.Query().Get("status")
	resp, err := h.Assignments.ListForHospital(r.Context(), actor.ProfileID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HospitalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	resp, err := h.Assignments.Dashboard(r.Context(), actor.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HospitalHandler) SubscriptionCheckout(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req entities.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Subscriptions.Checkout(r.Context(), actor.ProfileID, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HospitalHandler) CurrentSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	resp, err := h.Subscriptions.Current(r.Context(), actor.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HospitalHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		FullName         string `json:"full_name"`
		MedicalCondition string `json:"medical_condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.FullName == "" {
		http.Error(w, "full_name is required", http.StatusBadRequest)
		return
	}
	patient := &db.Patient{
		ID:               uuid.NewString(),
		HospitalID:       actor.ProfileID,
		FullName:         req.FullName,
		MedicalCondition: req.MedicalCondition,
	}
	if err := h.HospitalRepo.CreatePatient(r.Context(), patient); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, patient)
}
