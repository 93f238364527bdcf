package services

import (
	"context"

	"murmur_server/models"
)

// MatchLedger persists match ledger entries. CreateMatch fails with
// repositories.ErrDuplicate while the pair holds an active match.
type MatchLedger interface {
	CreateMatch(ctx context.Context, match models.Match) error
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	FindActiveMatch(ctx context.Context, userA, userB string) (*models.Match, error)
	ListMatchesForUser(ctx context.Context, userID string) ([]models.Match, error)
	UpdateMatchStatus(ctx context.Context, matchID, from, to string) (*models.Match, error)
	DeleteMatch(ctx context.Context, matchID string) error
}

// RequestMailbox persists message requests with the same pair guarantee.
type RequestMailbox interface {
	CreateRequest(ctx context.Context, request models.MessageRequest) error
	GetRequest(ctx context.Context, requestID string) (*models.MessageRequest, error)
	FindActiveRequest(ctx context.Context, userA, userB string) (*models.MessageRequest, error)
	ListRequestsForUser(ctx context.Context, userID string) ([]models.MessageRequest, error)
	UpdateRequestStatus(ctx context.Context, requestID, from, to string) (*models.MessageRequest, error)
	DeleteRequest(ctx context.Context, requestID string) error
}

type RoomStore interface {
	FindRoomByPair(ctx context.Context, userA, userB string) (*models.ChatRoom, error)
	CreateRoom(ctx context.Context, room models.ChatRoom) error
	GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]models.ChatRoom, error)
	AppendMessage(ctx context.Context, message models.Message) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListPosts(ctx context.Context, kind string, limit int) ([]models.Post, error)
	AddReply(ctx context.Context, reply models.Reply) error
	ListReplies(ctx context.Context, postID string) ([]models.Reply, error)
}

// UserStore is the identity store with its write side.
type UserStore interface {
	IdentityStore
	Put(ctx context.Context, profile models.UserProfile) error
}
