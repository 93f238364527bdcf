package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestRoutesResolve(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := mux.NewRouter()
	RegisterRoutes(r)
	api := r.PathPrefix("/api").Subrouter()
	RegisterUserProfileRoutes(api, nil, log)
	RegisterMatchRoutes(api, nil, log)
	RegisterChatRoutes(api, nil, log)
	RegisterPostRoutes(api, nil, log)

	cases := []struct {
		method, path string
		vars         map[string]string
	}{
		{http.MethodGet, "/health", map[string]string{}},
		{http.MethodGet, "/privacy-policy", map[string]string{}},
		{http.MethodPost, "/api/match", map[string]string{}},
		{http.MethodGet, "/api/match", map[string]string{}},
		{http.MethodGet, "/api/requests", map[string]string{}},
		{http.MethodPost, "/api/requests/r1/respond", map[string]string{"requestId": "r1"}},
		{http.MethodGet, "/api/chat/rooms", map[string]string{}},
		{http.MethodPost, "/api/chat/rooms/room1/messages", map[string]string{"roomId": "room1"}},
		{http.MethodGet, "/api/posts", map[string]string{}},
		{http.MethodPost, "/api/posts/p1/replies", map[string]string{"postId": "p1"}},
		{http.MethodPut, "/api/users/me", map[string]string{}},
		{http.MethodGet, "/api/users/u1", map[string]string{"userId": "u1"}},
		{http.MethodPost, "/api/users/u1/verify", map[string]string{"userId": "u1"}},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := require.New(t)
			var match mux.RouteMatch
			req.True(r.Match(httptest.NewRequest(tc.method, tc.path, nil), &match))
			req.NoError(match.MatchErr)
			req.Equal(tc.vars, match.Vars)
		})
	}
}

func TestPrivacyPolicyHandler(t *testing.T) {
	req := require.New(t)
	w := httptest.NewRecorder()
	PrivacyPolicyHandler(w, httptest.NewRequest(http.MethodGet, "/privacy-policy", nil))
	req.Equal("text/html", w.Header().Get("Content-Type"))
	req.Contains(w.Body.String(), "Murmur")
}
