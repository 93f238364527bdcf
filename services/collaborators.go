//go:generate go run go.uber.org/mock/mockgen -source=collaborators.go -destination=../mocks/mock_collaborators.go -package=mocks
package services

import (
	"context"

	"murmur_server/models"
)

// IdentityStore is the read side of user identities. Gender can change at any
// time, so callers must not cache what it returns.
type IdentityStore interface {
	FindByID(ctx context.Context, userID string) (*models.UserProfile, error)
	FindMany(ctx context.Context, filter models.IdentityFilter) ([]models.UserProfile, error)
}

// Notifier pushes events to connected clients. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, event string, recipients []string, payload any)
}
