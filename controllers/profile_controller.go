package controllers

import (
	"encoding/json"
	"net/http"

	"tornado_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ProfileController exposes the profile reads and the push-token registration
// the lifecycle needs. Profile editing lives in external flows.
type ProfileController struct {
	Profiles *services.ProfileService
	validate *validator.Validate
}

// NewProfileController creates a new ProfileController instance
func NewProfileController(profiles *services.ProfileService) *ProfileController {
	return &ProfileController{Profiles: profiles, validate: validator.New()}
}

// HandleGetProfile fetches a profile by userId.
func (pc *ProfileController) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	profile, err := pc.Profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// HandleUpdatePushToken registers the caller's Expo push token.
func (pc *ProfileController) HandleUpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID    string `json:"userId" validate:"required"`
		PushToken string `json:"pushToken" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := pc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "userId and pushToken are required"})
		return
	}

	if err := pc.Profiles.UpdatePushToken(r.Context(), request.UserID, request.PushToken); err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
