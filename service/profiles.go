package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"doubleordie/config"
	"doubleordie/db"
)

var usernameRE = regexp.MustCompile(config.UsernamePattern)

// ProfileUpdate is the PUT /api/profile body
type ProfileUpdate struct {
	Username string `json:"username"`
	Theme    string `json:"theme"`
}

// GetProfile returns the caller's profile, or nil when none exists
func (s *Service) GetProfile(ctx context.Context, authorization string) (*db.ProfileRecord, error) {
	userID, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, storageFailure("Failed to load profile.", err)
	}
	return profile, nil
}

// UpdateProfile creates or updates the caller's profile
func (s *Service) UpdateProfile(ctx context.Context, authorization string, update *ProfileUpdate) (*db.ProfileRecord, error) {
	userID, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(update.Username)
	if !usernameRE.MatchString(username) {
		return nil, reject(ErrInvalidRequest, "Username must be 3-24 letters, numbers or underscores.")
	}

	theme := update.Theme
	switch theme {
	case "":
		theme = config.DefaultTheme
	case "dark", "light":
	default:
		return nil, reject(ErrInvalidRequest, "Theme must be dark or light.")
	}

	saved, err := s.store.UpsertProfile(ctx, &db.ProfileRecord{ID: userID, Username: username, Theme: theme})
	if errors.Is(err, db.ErrUsernameTaken) {
		return nil, reject(ErrUsernameTaken, "That username is already taken.")
	}
	if err != nil {
		return nil, storageFailure("Failed to save profile.", err)
	}
	return saved, nil
}
