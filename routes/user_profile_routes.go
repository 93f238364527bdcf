package routes

import (
	"log/slog"

	"murmur_server/controllers"
	"murmur_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserProfileRoutes sets up routes for identities under /api/users
func RegisterUserProfileRoutes(api *mux.Router, profiles *services.UserProfileService, log *slog.Logger) {
	controller := controllers.NewUserProfileController(profiles, log)

	userRouter := api.PathPrefix("/users").Subrouter()
	userRouter.HandleFunc("/me", controller.UpsertMe).Methods("PUT")
	userRouter.HandleFunc("/{userId}", controller.GetProfile).Methods("GET")
	userRouter.HandleFunc("/{userId}/verify", controller.Verify).Methods("POST")
}
