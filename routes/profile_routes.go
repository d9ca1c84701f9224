package routes

import (
	"tornado_server/controllers"
	"tornado_server/services"

	"github.com/gorilla/mux"
)

// RegisterProfileRoutes sets up routes for profile operations under /api/profile
func RegisterProfileRoutes(r *mux.Router, profileService *services.ProfileService) {
	controller := controllers.NewProfileController(profileService)

	profileRouter := r.PathPrefix("/api/profile").Subrouter()
	profileRouter.HandleFunc("/push-token", controller.HandleUpdatePushToken).Methods("PUT")
	profileRouter.HandleFunc("/{userId}", controller.HandleGetProfile).Methods("GET")
}
