package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"murmur_server/models"
	"murmur_server/repositories"
	"murmur_server/utils"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MaxMessageLength bounds a chat message, in characters.
const MaxMessageLength = 2000

// RoomService allocates one room per pair and stores its messages.
type RoomService struct {
	rooms    RoomStore
	notifier Notifier
	log      *slog.Logger
	pageSize int
}

func NewRoomService(rooms RoomStore, notifier Notifier, log *slog.Logger, pageSize int) *RoomService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &RoomService{rooms: rooms, notifier: notifier, log: log, pageSize: pageSize}
}

// FindOrCreate returns the room of the unordered pair {a, b}, creating it on
// first use. (a, b) and (b, a) always resolve to the same room.
func (s *RoomService) FindOrCreate(ctx context.Context, a, b string) (*models.ChatRoom, error) {
	if a == "" || b == "" || a == b {
		return nil, newError(CodeValidation, "A room needs two distinct participants")
	}

	room, err := s.rooms.FindRoomByPair(ctx, a, b)
	if err != nil {
		return nil, wrapError(CodeInternal, "failed to look up room", err)
	}
	if room != nil {
		s.log.Debug("💬 Reusing room", "roomId", room.RoomID)
		return room, nil
	}

	first, second := utils.SortedPair(a, b)
	room = &models.ChatRoom{
		RoomID:       uuid.New().String(),
		Participants: []string{first, second},
		PairKey:      utils.PairKey(a, b),
		CreatedAt:    time.Now().UTC(),
	}
	err = s.rooms.CreateRoom(ctx, *room)
	if errors.Is(err, repositories.ErrDuplicate) {
		// Lost the race to another creator; its room is the pair's room.
		existing, findErr := s.rooms.FindRoomByPair(ctx, a, b)
		if findErr != nil || existing == nil {
			return nil, wrapError(CodeInternal, "failed to read concurrently created room", errors.Join(err, findErr))
		}
		return existing, nil
	}
	if err != nil {
		return nil, wrapError(CodeInternal, "failed to create room", err)
	}

	s.log.Info("✅ Room created", "roomId", room.RoomID)
	return room, nil
}

// ListRooms returns the rooms of a user, newest first.
func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		s.log.Error("❌ Failed to fetch rooms", "userId", userID, "error", err)
		return nil, wrapError(CodeInternal, "failed to fetch rooms", err)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	if rooms == nil {
		rooms = []models.ChatRoom{}
	}
	return rooms, nil
}

// SendMessage appends a message to a room the sender belongs to and pushes it
// to the other participant.
func (s *RoomService) SendMessage(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, newError(CodeValidation, "Message must be between 1 and 2000 characters")
	}

	room, err := s.participantRoom(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	message := models.Message{
		RoomID:    room.RoomID,
		MessageID: uuid.New().String(),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.rooms.AppendMessage(ctx, message); err != nil {
		s.log.Error("❌ Failed to store message", "roomId", roomID, "error", err)
		return nil, wrapError(CodeInternal, "failed to store message", err)
	}

	s.log.Debug("📩 Message stored", "roomId", roomID, "messageId", message.MessageID)
	recipients := lo.Without(room.Participants, senderID)
	s.notifier.Notify(ctx, models.EventMessageNew, recipients, message)
	return &message, nil
}

// GetMessages returns the latest messages of a room, oldest first.
func (s *RoomService) GetMessages(ctx context.Context, roomID, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	if _, err := s.participantRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}

	messages, err := s.rooms.ListMessages(ctx, roomID, limit)
	if err != nil {
		s.log.Error("❌ Failed to fetch messages", "roomId", roomID, "error", err)
		return nil, wrapError(CodeInternal, "failed to fetch messages", err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

func (s *RoomService) participantRoom(ctx context.Context, roomID, userID string) (*models.ChatRoom, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeNotFound, "Chat room not found")
	}
	if err != nil {
		return nil, wrapError(CodeInternal, "failed to fetch room", err)
	}
	if !room.HasParticipant(userID) {
		return nil, newError(CodeUnauthorized, "You are not a participant of this room")
	}
	return room, nil
}
