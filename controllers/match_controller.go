package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"murmur_server/services"

	"github.com/gorilla/mux"
)

// MatchController handles HTTP requests for matchmaking and message requests
type MatchController struct {
	Matchmaking *services.MatchmakingService
	Log         *slog.Logger
}

// NewMatchController creates a new MatchController instance
func NewMatchController(matchmaking *services.MatchmakingService, log *slog.Logger) *MatchController {
	return &MatchController{Matchmaking: matchmaking, Log: log}
}

// RequestMatch handles POST /api/match
func (mc *MatchController) RequestMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := mc.Matchmaking.RequestMatch(r.Context(), userID)
	if err != nil {
		writeError(w, mc.Log, err)
		return
	}

	// An empty pool is a normal outcome
	if result.NoCandidates {
		WriteJSONResponse(w, http.StatusOK, map[string]any{
			"success": false,
			"message": result.Message,
			"reason":  result.Reason,
		})
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": result.Message,
		"data":    result,
	})
}

// ListMatches handles GET /api/match
func (mc *MatchController) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	list, err := mc.Matchmaking.ListMatches(r.Context(), userID)
	if err != nil {
		writeError(w, mc.Log, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"matches": list.Matches,
		"flagged": list.Flagged,
	})
}

type respondPayload struct {
	RequestID string `json:"requestId,omitempty"`
	Accept    *bool  `json:"accept" validate:"required"`
}

// RespondToRequest handles POST /api/requests/{requestId}/respond
func (mc *MatchController) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := mux.Vars(r)["requestId"]

	var payload respondPayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, mc.Log, err)
		return
	}
	if payload.RequestID != "" && payload.RequestID != requestID {
		writeError(w, mc.Log, &services.Error{Code: services.CodeValidation, Message: "requestId does not match the path"})
		return
	}

	result, err := mc.Matchmaking.RespondToRequest(r.Context(), userID, requestID, *payload.Accept)
	if err != nil {
		writeError(w, mc.Log, err)
		return
	}

	message := "Request rejected"
	if *payload.Accept {
		message = "Request accepted"
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"data":    result,
	})
}

// ListRequests handles GET /api/requests?history=true|false
func (mc *MatchController) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	history := false
	if raw := r.URL.Query().Get("history"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, mc.Log, &services.Error{Code: services.CodeValidation, Message: "history must be true or false", Cause: err})
			return
		}
		history = parsed
	}

	list, err := mc.Matchmaking.ListRequests(r.Context(), userID, history)
	if err != nil {
		writeError(w, mc.Log, err)
		return
	}

	WriteJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"requests": list.Requests,
		"sent":     list.Sent,
		"received": list.Received,
		"flagged":  list.Flagged,
	})
}
