package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"murmur_server/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerUserRepository is the embedded identity store
type BadgerUserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerUserRepository(db *badger.DB, log *slog.Logger) BadgerUserRepository {
	return BadgerUserRepository{db: db, log: log}
}

func (r BadgerUserRepository) FindByID(_ context.Context, userID string) (*models.UserProfile, error) {
	var profile *models.UserProfile
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		profile, err = getRecord[models.UserProfile](txn, userPrefix+userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// FindMany walks every profile; the embedded store has no secondary index on gender.
func (r BadgerUserRepository) FindMany(_ context.Context, filter models.IdentityFilter) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := r.db.View(func(txn *badger.Txn) error {
		values, err := scanValues(txn, userPrefix, false, 0)
		if err != nil {
			return err
		}
		all, err := decodeAll[models.UserProfile](values)
		if err != nil {
			return err
		}
		for _, p := range all {
			if filter.Matches(p) {
				profiles = append(profiles, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}
	r.log.Debug("🔍 Candidate scan finished", "gender", filter.Gender, "found", len(profiles))
	return profiles, nil
}

func (r BadgerUserRepository) Put(_ context.Context, profile models.UserProfile) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return putRecord(txn, userPrefix+profile.UserID, profile)
	})
}
