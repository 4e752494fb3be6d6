package service

import (
	"context"
	"errors"
	"log"
	"time"

	"doubleordie/auth"
	"doubleordie/config"
	"doubleordie/crypto"
	"doubleordie/db"

	"github.com/google/uuid"
)

// RunTicket is handed to the client when a run starts
type RunTicket struct {
	RunToken  string    `json:"run_token"`
	ExpiresAt time.Time `json:"expires_at"`
	SeasonID  string    `json:"season_id"`
}

// Authenticate resolves an Authorization header to a user id
func (s *Service) Authenticate(ctx context.Context, authorization string) (string, error) {
	if s.verifier == nil {
		return "", reject(ErrUnauthenticated, "Invalid auth token.")
	}

	userID, err := s.verifier.ResolveUser(ctx, authorization)
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "", reject(ErrUnauthenticated, "Missing Authorization header.")
	case err != nil || userID == "":
		return "", reject(ErrUnauthenticated, "Invalid auth token.")
	}
	return userID, nil
}

// StartRun issues a single-use run token bound to the caller and the active season
func (s *Service) StartRun(ctx context.Context, authorization string) (*RunTicket, error) {
	userID, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return nil, err
	}

	season, err := s.store.ActiveSeason(ctx)
	if err != nil {
		return nil, storageFailure("Failed to issue run token.", err)
	}
	if season == nil {
		return nil, reject(ErrNoActiveSeason, "No active season.")
	}

	nonce, err := crypto.GenerateServerNonce()
	if err != nil {
		return nil, storageFailure("Failed to issue run token.", err)
	}

	now := s.now()
	token := &db.RunTokenRecord{
		TokenID:     uuid.NewString(),
		UserID:      userID,
		SeasonID:    season.ID,
		ServerNonce: nonce,
		ExpiresAt:   now.Add(config.RunTokenTTL),
		CreatedAt:   now,
	}

	if err := s.store.InsertRunToken(ctx, token); err != nil {
		log.Printf("❌ Failed to issue run token for %s: %v", userID, err)
		return nil, storageFailure("Failed to issue run token.", err)
	}

	log.Printf("✅ Issued run token - User: %s, Season: %s, Expires: %s",
		userID, season.ID, token.ExpiresAt.Format(time.RFC3339))

	return &RunTicket{
		RunToken:  token.TokenID,
		ExpiresAt: token.ExpiresAt,
		SeasonID:  token.SeasonID,
	}, nil
}

// PruneRunTokens deletes tokens that expired more than grace ago
func (s *Service) PruneRunTokens(ctx context.Context, grace time.Duration) (int64, error) {
	return s.store.DeleteExpiredRunTokens(ctx, s.now().Add(-grace))
}
