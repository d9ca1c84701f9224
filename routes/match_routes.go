package routes

import (
	"time"

	"tornado_server/controllers"
	"tornado_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRoutes sets up routes for match lifecycle operations under /api/match
func RegisterMatchRoutes(r *mux.Router, matchmaker *services.MatchmakerService, consent *services.ConsentService, sessions *services.SessionService, matches *services.MatchService) {
	controller := controllers.NewMatchController(matchmaker, consent, sessions, matches)

	// Pairing is retried on a poll loop by design; cap it per client anyway.
	limiter := newIPRateLimiter(10, 10*time.Second)

	matchRouter := r.PathPrefix("/api/match").Subrouter()
	matchRouter.HandleFunc("/request", rateLimit(limiter, controller.HandleRequestMatch)).Methods("POST")
	matchRouter.HandleFunc("/cancel", controller.HandleCancelSearch).Methods("POST")
	matchRouter.HandleFunc("/consent", controller.HandleSubmitConsent).Methods("POST")
	matchRouter.HandleFunc("/expire", controller.HandleDeclareExpiry).Methods("POST")
	matchRouter.HandleFunc("/list", controller.HandleListMatches).Methods("GET")
	matchRouter.HandleFunc("/{matchId}", controller.HandleGetMatch).Methods("GET")
}
