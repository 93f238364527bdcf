package socket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"murmur_server/services"

	"github.com/redis/go-redis/v9"
)

// PubSub is the subset of *redis.Client used by RedisRelay.
type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	PSubscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay publishes events on user:{id} channels so that every instance
// can deliver them to its own sockets.
type RedisRelay struct {
	rdb   PubSub
	local services.Notifier
	log   *slog.Logger
}

func NewRedisRelay(rdb PubSub, local services.Notifier, log *slog.Logger) *RedisRelay {
	return &RedisRelay{rdb: rdb, local: local, log: log}
}

func (r *RedisRelay) Notify(ctx context.Context, event string, recipients []string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("❌ Failed to encode event", "event", event, "error", err)
		return
	}
	message, err := json.Marshal(envelope{Event: event, Payload: raw})
	if err != nil {
		r.log.Error("❌ Failed to encode envelope", "event", event, "error", err)
		return
	}

	for _, userID := range recipients {
		if err := r.rdb.Publish(ctx, UserRoom(userID), message).Err(); err != nil {
			// Redis is down: at least reach the sockets held by this instance
			r.log.Warn("⚠️ Redis publish failed, delivering locally", "event", event, "userId", userID, "error", err)
			r.local.Notify(ctx, event, []string{userID}, json.RawMessage(raw))
		}
	}
}

// Run forwards every user:* message to the local relay until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.rdb.PSubscribe(ctx, UserRoomPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	r.log.Info("📡 Subscribed to Redis relay", "pattern", UserRoomPrefix+"*")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(ctx, msg)
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, msg *redis.Message) {
	userID, ok := strings.CutPrefix(msg.Channel, UserRoomPrefix)
	if !ok || userID == "" {
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.log.Warn("⚠️ Dropping malformed relay message", "channel", msg.Channel, "error", err)
		return
	}
	r.local.Notify(ctx, env.Event, []string{userID}, env.Payload)
}
