package service

import (
	"context"
	"time"

	"doubleordie/auth"
	"doubleordie/db"
)

// Store is the durable state behind every service operation.
// ConsumeRunToken must check and flip the used flag in one atomic step.
type Store interface {
	Ping(ctx context.Context) error

	ActiveSeason(ctx context.Context) (*db.SeasonRecord, error)
	ActivateSeason(ctx context.Context, season *db.SeasonRecord) error

	InsertRunToken(ctx context.Context, token *db.RunTokenRecord) error
	ConsumeRunToken(ctx context.Context, tokenID, userID string, now time.Time) (string, bool, error)
	GetRunToken(ctx context.Context, tokenID string) (*db.RunTokenRecord, error)
	DeleteExpiredRunTokens(ctx context.Context, cutoff time.Time) (int64, error)

	CountRecentRuns(ctx context.Context, userID string, since time.Time) (int, error)
	RecordRun(ctx context.Context, run *db.RunRecord) (*db.LedgerResult, error)
	GetRun(ctx context.Context, runID string) (*db.RunRecord, error)

	SeasonLeaderboard(ctx context.Context, seasonID string, limit int) ([]*db.LeaderboardRecord, error)
	PlayerSeasonRank(ctx context.Context, seasonID, userID string) (*db.PlayerRankRecord, error)
	SeasonCrown(ctx context.Context, seasonID string) (*db.CrownRecord, error)
	RecentSocialEvents(ctx context.Context, seasonID string, limit int) ([]*db.SocialEventRecord, error)

	GetProfile(ctx context.Context, userID string) (*db.ProfileRecord, error)
	UpsertProfile(ctx context.Context, profile *db.ProfileRecord) (*db.ProfileRecord, error)
}

var (
	_ Store = (*db.PostgresStore)(nil)
	_ Store = (*db.MemoryStore)(nil)
)

// Cache holds rendered public leaderboard bodies
type Cache interface {
	Get(ctx context.Context, seasonID string) ([]byte, error)
	Set(ctx context.Context, seasonID string, body []byte) error
	Invalidate(ctx context.Context, seasonID string) error
}

var _ Cache = (*db.LeaderboardCache)(nil)

// Service runs the token, verification, leaderboard and profile operations
type Service struct {
	store    Store
	cache    Cache
	verifier auth.Verifier
	now      func() time.Time
}

func New(store Store, cache Cache, verifier auth.Verifier) *Service {
	if cache == nil {
		cache = (*db.LeaderboardCache)(nil)
	}
	return &Service{store: store, cache: cache, verifier: verifier, now: time.Now}
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Ping reports store health
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
