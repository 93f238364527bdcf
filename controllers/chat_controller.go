package controllers

import (
	"log/slog"
	"net/http"

	"murmur_server/services"

	"github.com/gorilla/mux"
)

// ChatController serves rooms and their messages
type ChatController struct {
	Rooms *services.RoomService
	Log   *slog.Logger
}

func NewChatController(rooms *services.RoomService, log *slog.Logger) *ChatController {
	return &ChatController{Rooms: rooms, Log: log}
}

// ListRooms handles GET /api/chat/rooms
func (cc *ChatController) ListRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rooms, err := cc.Rooms.ListRooms(r.Context(), userID)
	if err != nil {
		writeError(w, cc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "rooms": rooms})
}

// GetMessages handles GET /api/chat/rooms/{roomId}/messages?limit=
func (cc *ChatController) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, cc.Log, err)
		return
	}

	messages, err := cc.Rooms.GetMessages(r.Context(), mux.Vars(r)["roomId"], userID, limit)
	if err != nil {
		writeError(w, cc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "messages": messages})
}

type sendMessagePayload struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// SendMessage handles POST /api/chat/rooms/{roomId}/messages
func (cc *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload sendMessagePayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, cc.Log, err)
		return
	}

	message, err := cc.Rooms.SendMessage(r.Context(), mux.Vars(r)["roomId"], userID, payload.Content)
	if err != nil {
		writeError(w, cc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, map[string]any{"success": true, "message": message})
}
