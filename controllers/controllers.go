package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"murmur_server/middleware"
	"murmur_server/services"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to Murmur"})
}

// WriteJSONResponse writes payload as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps a service error to its status. Internal failures and
// integrity violations are logged, the client only gets a safe message.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := services.CodeOf(err)
	switch code {
	case services.CodeInternal, services.CodeGenderInvariantViolation:
		log.Error("❌ Request failed", "code", code, "error", err)
	default:
		log.Debug("⚠️ Request refused", "code", code, "error", err)
	}
	WriteJSONResponse(w, code.HTTPStatus(), map[string]any{
		"success": false,
		"code":    code,
		"message": services.MessageOf(err),
	})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &services.Error{Code: services.CodeValidation, Message: "Invalid request body", Cause: err}
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return &services.Error{Code: services.CodeValidation, Message: "Invalid " + strings.Join(fields, ", "), Cause: err}
		}
		return &services.Error{Code: services.CodeValidation, Message: "Invalid request", Cause: err}
	}
	return nil
}

// currentUser returns the authenticated caller, or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		WriteJSONResponse(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "authentication required"})
	}
	return userID, ok
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &services.Error{Code: services.CodeValidation, Message: name + " must be a positive integer", Cause: err}
	}
	return n, nil
}
