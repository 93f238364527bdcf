package routes

import (
	"log/slog"

	"murmur_server/controllers"
	"murmur_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRoutes sets up /api/match and /api/requests
func RegisterMatchRoutes(api *mux.Router, matchmaking *services.MatchmakingService, log *slog.Logger) {
	controller := controllers.NewMatchController(matchmaking, log)

	api.HandleFunc("/match", controller.RequestMatch).Methods("POST")
	api.HandleFunc("/match", controller.ListMatches).Methods("GET")

	requestRouter := api.PathPrefix("/requests").Subrouter()
	requestRouter.HandleFunc("", controller.ListRequests).Methods("GET")
	requestRouter.HandleFunc("/{requestId}/respond", controller.RespondToRequest).Methods("POST")
}
