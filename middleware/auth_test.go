package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject, issuer string, expiresIn time.Duration, roles ...string) string {
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenVerifier_Verify(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "murmur")

	t.Run("should accept a valid token", func(t *testing.T) {
		req := require.New(t)
		claims, err := verifier.Verify(signToken(t, testSecret, "user-1", "murmur", time.Hour, RoleVerifier))
		req.NoError(err)
		req.Equal("user-1", claims.Subject)
		req.Equal([]string{RoleVerifier}, claims.Roles)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		_, err := verifier.Verify(signToken(t, "other", "user-1", "murmur", time.Hour))
		require.Error(t, err)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		_, err := verifier.Verify(signToken(t, testSecret, "user-1", "murmur", -time.Minute))
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("should reject a foreign issuer", func(t *testing.T) {
		_, err := verifier.Verify(signToken(t, testSecret, "user-1", "elsewhere", time.Hour))
		require.Error(t, err)
	})

	t.Run("should reject a token without subject", func(t *testing.T) {
		_, err := verifier.Verify(signToken(t, testSecret, "", "murmur", time.Hour))
		require.Error(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen string
	handler := Authenticate(verifier, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("should pass the user id downstream", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", "", time.Hour))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		req.Equal(http.StatusNoContent, w.Code)
		req.Equal("user-1", seen)
	})

	t.Run("should reject a missing token", func(t *testing.T) {
		req := require.New(t)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/requests", nil))

		req.Equal(http.StatusUnauthorized, w.Code)
		req.Contains(w.Body.String(), "authorization token is missing")
	})

	t.Run("should reject a bad token", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
		r.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)

		req.Equal(http.StatusUnauthorized, w.Code)
	})
}

func TestTimeout(t *testing.T) {
	req := require.New(t)
	var deadline time.Time
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, _ = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	req.WithinDuration(time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}
