package controllers

import (
	"log/slog"
	"net/http"

	"murmur_server/middleware"
	"murmur_server/models"
	"murmur_server/services"

	"github.com/gorilla/mux"
)

// UserProfileController handles the identity endpoints
type UserProfileController struct {
	Profiles *services.UserProfileService
	Log      *slog.Logger
}

func NewUserProfileController(profiles *services.UserProfileService, log *slog.Logger) *UserProfileController {
	return &UserProfileController{Profiles: profiles, Log: log}
}

type upsertProfilePayload struct {
	DisplayName string `json:"displayName" validate:"max=50"`
	Gender      string `json:"gender" validate:"required,oneof=male female"`
}

// publicProfile hides the display name from everyone but the owner
type publicProfile struct {
	UserID   string `json:"userId"`
	Gender   string `json:"gender"`
	Verified bool   `json:"verified"`
}

// UpsertMe handles PUT /api/users/me
func (uc *UserProfileController) UpsertMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload upsertProfilePayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, uc.Log, err)
		return
	}

	profile, err := uc.Profiles.Upsert(r.Context(), userID, payload.DisplayName, payload.Gender)
	if err != nil {
		writeError(w, uc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "profile": profile})
}

// GetProfile handles GET /api/users/{userId}. Only the owner sees the full record.
func (uc *UserProfileController) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	target := mux.Vars(r)["userId"]
	if target == "me" {
		target = userID
	}

	profile, err := uc.Profiles.Get(r.Context(), target)
	if err != nil {
		writeError(w, uc.Log, err)
		return
	}
	if target == userID {
		WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "profile": profile})
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "profile": toPublic(profile)})
}

// Verify handles POST /api/users/{userId}/verify, reserved to the verification service.
func (uc *UserProfileController) Verify(w http.ResponseWriter, r *http.Request) {
	if !middleware.HasRole(r.Context(), middleware.RoleVerifier) {
		writeError(w, uc.Log, &services.Error{Code: services.CodeUnauthorized, Message: "Only the verification service can verify users"})
		return
	}

	profile, err := uc.Profiles.Verify(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, uc.Log, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]any{"success": true, "profile": toPublic(profile)})
}

func toPublic(p *models.UserProfile) publicProfile {
	return publicProfile{UserID: p.UserID, Gender: p.Gender, Verified: p.Verified}
}
