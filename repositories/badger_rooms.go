package repositories

import (
	"context"
	"errors"
	"log/slog"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/dgraph-io/badger/v4"
)

// BadgerRoomRepository stores rooms and their append-only message history.
// Messages are keyed "msg:{roomId}:{sortKey}" so a prefix scan is chronological.
type BadgerRoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerRoomRepository(db *badger.DB, log *slog.Logger) BadgerRoomRepository {
	return BadgerRoomRepository{db: db, log: log}
}

func (r BadgerRoomRepository) FindRoomByPair(_ context.Context, userA, userB string) (*models.ChatRoom, error) {
	var room *models.ChatRoom
	err := r.db.View(func(txn *badger.Txn) error {
		holder, err := getLock(txn, roomLockPrefix+utils.PairKey(userA, userB))
		if err != nil || holder == "" {
			return err
		}
		room, err = getRecord[models.ChatRoom](txn, roomPrefix+holder)
		if err == nil && !room.HasPair(userA, userB) {
			room = nil
		}
		return err
	})
	return room, err
}

// CreateRoom inserts a room unless the pair already has one. Rooms never release their lock.
func (r BadgerRoomRepository) CreateRoom(_ context.Context, room models.ChatRoom) error {
	lockKey := roomLockPrefix + room.PairKey
	err := r.db.Update(func(txn *badger.Txn) error {
		holder, err := getLock(txn, lockKey)
		if err != nil {
			return err
		}
		if holder != "" {
			return ErrDuplicate
		}
		if err := txn.Set([]byte(lockKey), []byte(room.RoomID)); err != nil {
			return err
		}
		if err := putRecord(txn, roomPrefix+room.RoomID, room); err != nil {
			return err
		}
		for _, participant := range room.Participants {
			if err := txn.Set(userIndexKey(roomUserIndexPrefix, participant, room.RoomID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	return commitErr(err, ErrDuplicate)
}

func (r BadgerRoomRepository) GetRoom(_ context.Context, roomID string) (*models.ChatRoom, error) {
	var room *models.ChatRoom
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRecord[models.ChatRoom](txn, roomPrefix+roomID)
		return err
	})
	return room, err
}

func (r BadgerRoomRepository) ListRoomsForUser(_ context.Context, userID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.View(func(txn *badger.Txn) error {
		for _, roomID := range scanKeySuffixes(txn, userIndexScan(roomUserIndexPrefix, userID)) {
			room, err := getRecord[models.ChatRoom](txn, roomPrefix+roomID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			rooms = append(rooms, *room)
		}
		return nil
	})
	return rooms, err
}

func (r BadgerRoomRepository) AppendMessage(_ context.Context, message models.Message) error {
	if message.SortKey == "" {
		message.SortKey = utils.TimeSortKey(message.CreatedAt, message.MessageID)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return putRecord(txn, messagePrefix+message.RoomID+":"+message.SortKey, message)
	})
}

// ListMessages returns the latest messages of a room, oldest first.
func (r BadgerRoomRepository) ListMessages(_ context.Context, roomID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.View(func(txn *badger.Txn) error {
		values, err := scanValues(txn, messagePrefix+roomID+":", true, limit)
		if err != nil {
			return err
		}
		messages, err = decodeAll[models.Message](values)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
