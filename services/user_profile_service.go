package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"murmur_server/models"
	"murmur_server/repositories"
)

// UserProfileService is the write side of the identity store.
type UserProfileService struct {
	users UserStore
	log   *slog.Logger
}

func NewUserProfileService(users UserStore, log *slog.Logger) *UserProfileService {
	return &UserProfileService{users: users, log: log}
}

// Upsert creates or updates a profile. Verification state and creation time
// are preserved across updates.
func (s *UserProfileService) Upsert(ctx context.Context, userID, displayName, gender string) (*models.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newError(CodeValidation, "userId is required")
	}
	if !models.IsBinaryGender(gender) {
		return nil, newError(CodeValidation, "gender must be male or female")
	}

	now := time.Now().UTC()
	profile, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		profile = &models.UserProfile{UserID: userID, CreatedAt: now}
	case err != nil:
		s.log.Error("❌ Failed to fetch profile", "userId", userID, "error", err)
		return nil, wrapError(CodeInternal, "failed to fetch profile", err)
	}

	if profile.Gender != "" && profile.Gender != gender {
		s.log.Info("⚠️ Gender changed", "userId", userID, "from", profile.Gender, "to", gender)
	}
	profile.DisplayName = strings.TrimSpace(displayName)
	profile.Gender = gender
	profile.UpdatedAt = now

	if err := s.users.Put(ctx, *profile); err != nil {
		s.log.Error("❌ Failed to save profile", "userId", userID, "error", err)
		return nil, wrapError(CodeInternal, "failed to save profile", err)
	}
	return profile, nil
}

func (s *UserProfileService) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(CodeNotFound, "User not found")
	}
	if err != nil {
		return nil, wrapError(CodeInternal, "failed to fetch profile", err)
	}
	return profile, nil
}

// Verify marks a profile verified, making it eligible as a match candidate.
func (s *UserProfileService) Verify(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Verified {
		return profile, nil
	}
	profile.Verified = true
	profile.UpdatedAt = time.Now().UTC()
	if err := s.users.Put(ctx, *profile); err != nil {
		return nil, wrapError(CodeInternal, "failed to save profile", err)
	}
	s.log.Info("✅ User verified", "userId", userID)
	return profile, nil
}
