package db

import "time"

// SeasonRecord represents a competitive season
type SeasonRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	IsActive bool      `json:"is_active"`
}

// RunTokenRecord represents a single-use run token
type RunTokenRecord struct {
	TokenID     string     `json:"token_id"`
	UserID      string     `json:"user_id"`
	SeasonID    string     `json:"season_id"`
	ServerNonce string     `json:"-"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Used        bool       `json:"used"`
	ConsumedAt  *time.Time `json:"consumed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RunRecord represents an accepted, immutable run
type RunRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SeasonID   string    `json:"season_id"`
	Score      int64     `json:"score"`
	Doubles    int       `json:"doubles"`
	DurationMs int64     `json:"duration_ms"`
	Digest     string    `json:"-"`
	DigestHash string    `json:"digest_hash"`
	IsValid    bool      `json:"is_valid"`
	CreatedAt  time.Time `json:"created_at"`
}

// LeaderboardRecord is one player's best score in a season
type LeaderboardRecord struct {
	Rank      int       `json:"rank"`
	SeasonID  string    `json:"season_id"`
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"`
	BestScore int64     `json:"best_score"`
	BestRunID string    `json:"best_run_id"`
	UpdatedAt time.Time `json:"updated_at"`
	HasCrown  bool      `json:"has_crown"`
}

// CrownRecord is the season-wide top score holder
type CrownRecord struct {
	SeasonID  string    `json:"season_id"`
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"`
	Score     int64     `json:"score"`
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerRankRecord is a player's position on the season board
type PlayerRankRecord struct {
	Rank  int   `json:"rank"`
	Score int64 `json:"score"`
}

// LedgerResult reports what a recorded run changed
type LedgerResult struct {
	NewBest     bool
	CrownStolen bool
}

// ProfileRecord is a player's public profile
type ProfileRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Social event kinds
const (
	EventNewBest     = "new_best"
	EventCrownStolen = "crown_stolen"
)

// SocialEventRecord is one entry of the social feed
type SocialEventRecord struct {
	ID        int64     `json:"id"`
	SeasonID  string    `json:"season_id"`
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"`
	Kind      string    `json:"kind"`
	Score     int64     `json:"score"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}
