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

// BadgerMatchRepository is the embedded match ledger. The pair lock makes the
// store itself reject a second active match for the same two users.
type BadgerMatchRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerMatchRepository(db *badger.DB, log *slog.Logger) BadgerMatchRepository {
	return BadgerMatchRepository{db: db, log: log}
}

func (r BadgerMatchRepository) CreateMatch(_ context.Context, match models.Match) error {
	lockKey := matchLockPrefix + match.PairKey
	err := r.db.Update(func(txn *badger.Txn) error {
		holder, err := getLock(txn, lockKey)
		if err != nil {
			return err
		}
		if holder != "" {
			return ErrDuplicate
		}
		if err := txn.Set([]byte(lockKey), []byte(match.MatchID)); err != nil {
			return err
		}
		if err := putRecord(txn, matchPrefix+match.MatchID, match); err != nil {
			return err
		}
		if err := txn.Set(userIndexKey(matchUserIndexPrefix, match.User1Handle, match.MatchID), nil); err != nil {
			return err
		}
		return txn.Set(userIndexKey(matchUserIndexPrefix, match.User2Handle, match.MatchID), nil)
	})
	return commitErr(err, ErrDuplicate)
}

func (r BadgerMatchRepository) GetMatch(_ context.Context, matchID string) (*models.Match, error) {
	var match *models.Match
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		match, err = getRecord[models.Match](txn, matchPrefix+matchID)
		return err
	})
	return match, err
}

// FindActiveMatch returns the pending or accepted match of the pair, or nil.
func (r BadgerMatchRepository) FindActiveMatch(_ context.Context, userA, userB string) (*models.Match, error) {
	var match *models.Match
	err := r.db.View(func(txn *badger.Txn) error {
		holder, err := getLock(txn, matchLockPrefix+utils.PairKey(userA, userB))
		if err != nil || holder == "" {
			return err
		}
		match, err = getRecord[models.Match](txn, matchPrefix+holder)
		if err == nil && !utils.SamePair(match.User1Handle, match.User2Handle, userA, userB) {
			match = nil
		}
		return err
	})
	return match, err
}

func (r BadgerMatchRepository) ListMatchesForUser(_ context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.View(func(txn *badger.Txn) error {
		for _, matchID := range scanKeySuffixes(txn, userIndexScan(matchUserIndexPrefix, userID)) {
			match, err := getRecord[models.Match](txn, matchPrefix+matchID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			matches = append(matches, *match)
		}
		return nil
	})
	return matches, err
}

// UpdateMatchStatus moves a match from one status to another. A terminal
// target status frees the pair lock; leaving a terminal status takes it back.
func (r BadgerMatchRepository) UpdateMatchStatus(_ context.Context, matchID, from, to string) (*models.Match, error) {
	var updated *models.Match
	err := r.db.Update(func(txn *badger.Txn) error {
		match, err := getRecord[models.Match](txn, matchPrefix+matchID)
		if err != nil {
			return err
		}
		if match.Status != from {
			return ErrStatusConflict
		}
		match.Status = to
		match.UpdatedAt = time.Now().UTC()
		if err := putRecord(txn, matchPrefix+matchID, match); err != nil {
			return err
		}
		switch {
		case !models.IsActiveStatus(to):
			if err := releaseLock(txn, matchLockPrefix+match.PairKey, matchID); err != nil {
				return err
			}
		case !models.IsActiveStatus(from):
			if err := reacquireLock(txn, matchLockPrefix+match.PairKey, matchID); err != nil {
				return err
			}
		}
		updated = match
		return nil
	})
	if err != nil {
		return nil, commitErr(err, ErrStatusConflict)
	}
	return updated, nil
}

// DeleteMatch removes a match with its lock and indexes. Deleting a missing match is a no-op.
func (r BadgerMatchRepository) DeleteMatch(_ context.Context, matchID string) error {
	return updateWithRetry(r.db, func(txn *badger.Txn) error {
		match, err := getRecord[models.Match](txn, matchPrefix+matchID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := releaseLock(txn, matchLockPrefix+match.PairKey, matchID); err != nil {
			return err
		}
		if err := txn.Delete(userIndexKey(matchUserIndexPrefix, match.User1Handle, matchID)); err != nil {
			return err
		}
		if err := txn.Delete(userIndexKey(matchUserIndexPrefix, match.User2Handle, matchID)); err != nil {
			return err
		}
		return txn.Delete([]byte(matchPrefix + matchID))
	})
}
