package socket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"murmur_server/middleware"
	"murmur_server/services"

	socketio "github.com/googollee/go-socket.io"
)

const sendTimeout = 5 * time.Second

// Server is the socket.io endpoint. Each authenticated socket sits in the
// user:{id} room of its identity, which is where the relay emits.
type Server struct {
	io       *socketio.Server
	verifier *middleware.TokenVerifier
	rooms    *services.RoomService
	log      *slog.Logger
}

// NewSocketServer initializes the socket.io server and its handlers
func NewSocketServer(verifier *middleware.TokenVerifier, rooms *services.RoomService, log *slog.Logger) *Server {
	s := &Server{
		io:       socketio.NewServer(nil),
		verifier: verifier,
		rooms:    rooms,
		log:      log,
	}

	s.io.OnConnect("/", s.onConnect)
	s.io.OnEvent("/", "join", s.onJoin)
	s.io.OnEvent("/", "sendMessage", s.onSendMessage)
	s.io.OnError("/", func(c socketio.Conn, err error) {
		s.log.Warn("⚠️ Socket error", "error", err)
	})
	s.io.OnDisconnect("/", func(c socketio.Conn, reason string) {
		s.log.Info("❌ Socket disconnected", "socketId", c.ID(), "userId", identityOf(c), "reason", reason)
	})
	return s
}

// Broadcaster exposes the emitter for the relay.
func (s *Server) Broadcaster() Broadcaster {
	return s.io
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHTTP(w, r)
}

// Serve runs the socket.io event loop. It blocks until Close.
func (s *Server) Serve() error {
	return s.io.Serve()
}

func (s *Server) Close() error {
	return s.io.Close()
}

// handshakeToken reads the token of the handshake query or its Authorization header.
func handshakeToken(c socketio.Conn) string {
	u := c.URL()
	if token := u.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(c.RemoteHeader().Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func identityOf(c socketio.Conn) string {
	userID, _ := c.Context().(string)
	return userID
}

// onConnect authenticates sockets that present a token in the handshake.
// Sockets without one may still authenticate with their first join.
func (s *Server) onConnect(c socketio.Conn) error {
	token := handshakeToken(c)
	if token == "" {
		s.log.Debug("🔌 Socket connected without token", "socketId", c.ID())
		return nil
	}
	return s.authenticate(c, token)
}

func (s *Server) authenticate(c socketio.Conn, token string) error {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		s.log.Debug("🔒 Socket token rejected", "socketId", c.ID(), "error", err)
		return err
	}
	c.SetContext(claims.Subject)
	c.Join(UserRoom(claims.Subject))
	s.log.Info("✅ Socket connected", "socketId", c.ID(), "userId", claims.Subject)
	return nil
}

// onJoin places the socket in its own user room. Joining the room of
// another identity is never allowed.
func (s *Server) onJoin(c socketio.Conn, data map[string]string) map[string]any {
	if identityOf(c) == "" {
		if err := s.authenticate(c, data["token"]); err != nil {
			return map[string]any{"success": false, "message": "invalid or expired token"}
		}
	}
	userID := identityOf(c)
	if requested := data["userId"]; requested != "" && requested != userID {
		s.log.Warn("🚫 Socket tried to join another user room", "userId", userID, "requested", requested)
		return map[string]any{"success": false, "message": "cannot join another user's room"}
	}
	c.Join(UserRoom(userID))
	s.log.Info("👥 User joined", "socketId", c.ID(), "userId", userID)
	return map[string]any{"success": true, "room": UserRoom(userID)}
}

// onSendMessage persists a chat message. The room service notifies the
// other participant with message:new.
func (s *Server) onSendMessage(c socketio.Conn, data map[string]string) map[string]any {
	userID := identityOf(c)
	if userID == "" {
		return map[string]any{"success": false, "message": "authentication required"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	message, err := s.rooms.SendMessage(ctx, data["roomId"], userID, data["content"])
	if err != nil {
		if services.CodeOf(err) == services.CodeInternal {
			s.log.Error("❌ Failed to send socket message", "userId", userID, "error", err)
		}
		return map[string]any{"success": false, "code": services.CodeOf(err), "message": services.MessageOf(err)}
	}
	s.log.Info("📩 Socket message stored", "roomId", message.RoomID, "userId", userID)
	return map[string]any{"success": true, "message": message}
}
