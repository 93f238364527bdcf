package repositories

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"murmur_server/models"
	"murmur_server/utils"

	"github.com/dgraph-io/badger/v4"
)

// BadgerRequestRepository is the embedded request mailbox
type BadgerRequestRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerRequestRepository(db *badger.DB, log *slog.Logger) BadgerRequestRepository {
	return BadgerRequestRepository{db: db, log: log}
}

func (r BadgerRequestRepository) CreateRequest(_ context.Context, request models.MessageRequest) error {
	lockKey := requestLockPrefix + request.PairKey
	err := r.db.Update(func(txn *badger.Txn) error {
		holder, err := getLock(txn, lockKey)
		if err != nil {
			return err
		}
		if holder != "" {
			return ErrDuplicate
		}
		if err := txn.Set([]byte(lockKey), []byte(request.RequestID)); err != nil {
			return err
		}
		if err := putRecord(txn, requestPrefix+request.RequestID, request); err != nil {
			return err
		}
		if err := txn.Set(userIndexKey(requestUserIndexPrefix, request.SenderHandle, request.RequestID), nil); err != nil {
			return err
		}
		return txn.Set(userIndexKey(requestUserIndexPrefix, request.RecipientHandle, request.RequestID), nil)
	})
	return commitErr(err, ErrDuplicate)
}

func (r BadgerRequestRepository) GetRequest(_ context.Context, requestID string) (*models.MessageRequest, error) {
	var request *models.MessageRequest
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		request, err = getRecord[models.MessageRequest](txn, requestPrefix+requestID)
		return err
	})
	return request, err
}

func (r BadgerRequestRepository) FindActiveRequest(_ context.Context, userA, userB string) (*models.MessageRequest, error) {
	var request *models.MessageRequest
	err := r.db.View(func(txn *badger.Txn) error {
		holder, err := getLock(txn, requestLockPrefix+utils.PairKey(userA, userB))
		if err != nil || holder == "" {
			return err
		}
		request, err = getRecord[models.MessageRequest](txn, requestPrefix+holder)
		if err == nil && !utils.SamePair(request.SenderHandle, request.RecipientHandle, userA, userB) {
			request = nil
		}
		return err
	})
	return request, err
}

// ListRequestsForUser returns every request the user sent or received, in any status.
func (r BadgerRequestRepository) ListRequestsForUser(_ context.Context, userID string) ([]models.MessageRequest, error) {
	var requests []models.MessageRequest
	err := r.db.View(func(txn *badger.Txn) error {
		for _, requestID := range scanKeySuffixes(txn, userIndexScan(requestUserIndexPrefix, userID)) {
			request, err := getRecord[models.MessageRequest](txn, requestPrefix+requestID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			requests = append(requests, *request)
		}
		return nil
	})
	return requests, err
}

func (r BadgerRequestRepository) UpdateRequestStatus(_ context.Context, requestID, from, to string) (*models.MessageRequest, error) {
	var updated *models.MessageRequest
	err := r.db.Update(func(txn *badger.Txn) error {
		request, err := getRecord[models.MessageRequest](txn, requestPrefix+requestID)
		if err != nil {
			return err
		}
		if request.Status != from {
			return ErrStatusConflict
		}
		request.Status = to
		request.UpdatedAt = time.Now().UTC()
		if err := putRecord(txn, requestPrefix+requestID, request); err != nil {
			return err
		}
		switch {
		case !models.IsActiveStatus(to):
			if err := releaseLock(txn, requestLockPrefix+request.PairKey, requestID); err != nil {
				return err
			}
		case !models.IsActiveStatus(from):
			if err := reacquireLock(txn, requestLockPrefix+request.PairKey, requestID); err != nil {
				return err
			}
		}
		updated = request
		return nil
	})
	if err != nil {
		return nil, commitErr(err, ErrStatusConflict)
	}
	return updated, nil
}

func (r BadgerRequestRepository) DeleteRequest(_ context.Context, requestID string) error {
	return updateWithRetry(r.db, func(txn *badger.Txn) error {
		request, err := getRecord[models.MessageRequest](txn, requestPrefix+requestID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := releaseLock(txn, requestLockPrefix+request.PairKey, requestID); err != nil {
			return err
		}
		if err := txn.Delete(userIndexKey(requestUserIndexPrefix, request.SenderHandle, requestID)); err != nil {
			return err
		}
		if err := txn.Delete(userIndexKey(requestUserIndexPrefix, request.RecipientHandle, requestID)); err != nil {
			return err
		}
		return txn.Delete([]byte(requestPrefix + requestID))
	})
}
