package routes

import (
	"log/slog"

	"murmur_server/controllers"
	"murmur_server/services"

	"github.com/gorilla/mux"
)

// RegisterPostRoutes sets up the anonymous feed under /api/posts
func RegisterPostRoutes(api *mux.Router, posts *services.PostService, log *slog.Logger) {
	controller := controllers.NewPostController(posts, log)

	postRouter := api.PathPrefix("/posts").Subrouter()
	postRouter.HandleFunc("", controller.CreatePost).Methods("POST")
	postRouter.HandleFunc("", controller.ListPosts).Methods("GET")
	postRouter.HandleFunc("/{postId}", controller.GetPost).Methods("GET")
	postRouter.HandleFunc("/{postId}/replies", controller.CreateReply).Methods("POST")
}
