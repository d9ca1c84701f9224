package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tornado_server/services"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeServiceError maps the service error taxonomy onto HTTP status codes.
// Benign races land on 409 so clients re-fetch; only store outages and
// unexpected failures read as server errors.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrProfileNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
	case errors.Is(err, services.ErrExpired):
		respondJSON(w, http.StatusGone, map[string]string{"error": "expired"})
	case errors.Is(err, services.ErrAlreadyTerminal):
		respondJSON(w, http.StatusConflict, map[string]string{"error": "already_terminal"})
	case errors.Is(err, services.ErrStoreUnavailable):
		log.Printf("❌ Store unavailable: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store_unavailable"})
	default:
		log.Printf("❌ Unexpected error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
}
