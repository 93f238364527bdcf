package routes

import (
	"log/slog"

	"murmur_server/controllers"
	"murmur_server/services"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes sets up routes for chat rooms under /api/chat
func RegisterChatRoutes(api *mux.Router, rooms *services.RoomService, log *slog.Logger) {
	controller := controllers.NewChatController(rooms, log)

	chatRouter := api.PathPrefix("/chat").Subrouter()
	chatRouter.HandleFunc("/rooms", controller.ListRooms).Methods("GET")
	chatRouter.HandleFunc("/rooms/{roomId}/messages", controller.GetMessages).Methods("GET")
	chatRouter.HandleFunc("/rooms/{roomId}/messages", controller.SendMessage).Methods("POST")
}
