package socket

import (
	"context"
	"log/slog"
)

// UserRoomPrefix prefixes the per-identity socket.io room and Redis channel.
const UserRoomPrefix = "user:"

func UserRoom(userID string) string {
	return UserRoomPrefix + userID
}

// Broadcaster is the part of the socket.io server the relay emits through.
type Broadcaster interface {
	BroadcastToRoom(namespace string, room, event string, args ...interface{}) bool
}

// Relay delivers events to the sockets connected to this instance. Delivery
// is at most once: a recipient without a live socket misses the event.
type Relay struct {
	server Broadcaster
	log    *slog.Logger
}

func NewRelay(server Broadcaster, log *slog.Logger) *Relay {
	return &Relay{server: server, log: log}
}

func (r *Relay) Notify(_ context.Context, event string, recipients []string, payload any) {
	for _, userID := range recipients {
		if !r.server.BroadcastToRoom("/", UserRoom(userID), event, payload) {
			r.log.Debug("📭 No live socket for recipient", "event", event, "userId", userID)
			continue
		}
		r.log.Debug("📨 Event emitted", "event", event, "userId", userID)
	}
}
