package controllers

import (
	"log/slog"
	"net/http"

	"murmur_server/services"

	"github.com/gorilla/mux"
)

// PostController serves anonymous thoughts and confessions
type PostController struct {
	Posts *services.PostService
	Log   *slog.Logger
}

func NewPostController(posts *services.PostService, log *slog.Logger) *PostController {
	return &PostController{Posts: posts, Log: log}
}

type createPostPayload struct {
	Kind    string `json:"kind" validate:"required,oneof=thought confession"`
	Content string `json:"content" validate:"required,max=1000"`
}

type replyPayload struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// CreatePost handles POST /api/posts
func (pc *PostController) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload createPostPayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, pc.Log, err)
		return
	}

	post, err := pc.Posts.Create(r.Context(), userID, payload.Kind, payload.Content)
	if err != nil {
		writeError(w, pc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, map[string]any{"success": true, "post": post})
}

// ListPosts handles GET /api/posts?kind=&limit=
func (pc *PostController) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, pc.Log, err)
		return
	}
	posts, err := pc.Posts.List(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		writeError(w, pc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "posts": posts})
}

// GetPost handles GET /api/posts/{postId}
func (pc *PostController) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := pc.Posts.Get(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		writeError(w, pc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "post": post})
}

// CreateReply handles POST /api/posts/{postId}/replies
func (pc *PostController) CreateReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload replyPayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, pc.Log, err)
		return
	}

	reply, err := pc.Posts.Reply(r.Context(), mux.Vars(r)["postId"], userID, payload.Content)
	if err != nil {
		writeError(w, pc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, map[string]any{"success": true, "reply": reply})
}
