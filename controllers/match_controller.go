package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tornado_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// MatchController handles HTTP requests for the match lifecycle: pairing,
// consent votes, expiry declarations and match views.
type MatchController struct {
	Matchmaker *services.MatchmakerService
	Consent    *services.ConsentService
	Sessions   *services.SessionService
	Matches    *services.MatchService
	validate   *validator.Validate
}

// NewMatchController creates a new MatchController instance
func NewMatchController(matchmaker *services.MatchmakerService, consent *services.ConsentService, sessions *services.SessionService, matches *services.MatchService) *MatchController {
	return &MatchController{
		Matchmaker: matchmaker,
		Consent:    consent,
		Sessions:   sessions,
		Matches:    matches,
		validate:   validator.New(),
	}
}

// HandleRequestMatch pairs the caller with another searching user. Not
// finding anyone is a normal outcome surfaced as 404 not_found; the caller
// retries with backoff while the searching flag waits server-side.
func (mc *MatchController) HandleRequestMatch(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := mc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	match, err := mc.Matchmaker.RequestMatch(r.Context(), request.UserID)
	if errors.Is(err, services.ErrNoCandidate) {
		respondJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"matchId": match.MatchID})
}

// HandleCancelSearch clears the caller's searching flag.
func (mc *MatchController) HandleCancelSearch(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := mc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	if err := mc.Matchmaker.CancelSearch(r.Context(), request.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// HandleSubmitConsent records a reveal vote or a decline for a match.
func (mc *MatchController) HandleSubmitConsent(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID string `json:"matchId" validate:"required"`
		UserID  string `json:"userId" validate:"required"`
		Consent *bool  `json:"consent" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := mc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "matchId, userId and consent are required"})
		return
	}

	log.Printf("🗳️ Consent vote for match %s by %s: %v", request.MatchID, request.UserID, *request.Consent)

	match, err := mc.Consent.SubmitConsent(r.Context(), request.MatchID, request.UserID, *request.Consent)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": match.Status})
}

// HandleDeclareExpiry lets a client that observed the countdown hit zero
// declare the timeout. Idempotent: racing declarations all converge on the
// same terminal status.
func (mc *MatchController) HandleDeclareExpiry(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID string `json:"matchId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := mc.validate.Struct(request); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "matchId is required"})
		return
	}

	match, _, err := mc.Sessions.ExpireIfDue(r.Context(), request.MatchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           match.Status,
		"remainingSeconds": int64(mc.Sessions.Remaining(match).Seconds()),
	})
}

// HandleListMatches returns the caller's matches enriched with last-message state.
func (mc *MatchController) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	matches, err := mc.Matches.ListMatches(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// HandleGetMatch returns one participant's view of a match, including the
// authoritative remaining window recomputed from the stored creation time.
func (mc *MatchController) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	userID := r.URL.Query().Get("userId")
	if matchID == "" || userID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "matchId and userId are required"})
		return
	}

	view, err := mc.Matches.GetMatchView(r.Context(), matchID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
