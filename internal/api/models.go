package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "medmatch/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps business-rule failures onto their HTTP status and stable
// error code; anything else is a plain 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		writeJSON(w, httpErr.Status, httpErr)
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, apperrors.NewHTTPError(
		http.StatusInternalServerError, "internal_error", "internal server error"))
}
