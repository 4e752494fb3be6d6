package client

import (
	"time"

	"doubleordie/db"
	"doubleordie/game"
	"doubleordie/service"
)

// AuthState is the signed-in identity, if any
type AuthState struct {
	User    *Session
	Profile *db.ProfileRecord
}

// RunVerification tracks the token and action log of the run in progress
type RunVerification struct {
	Token    string
	SeasonID string
	IssuedAt time.Time
	Events   []game.DigestAction
}

// Active reports whether the run can be submitted
func (v RunVerification) Active() bool {
	return v.Token != "" && !v.IssuedAt.IsZero()
}

// LeaderboardState is the last fetched board and who it was fetched for
type LeaderboardState struct {
	View      *service.LeaderboardView
	FetchedAt time.Time
	FetchedBy string
	Social    []*db.SocialEventRecord
	Err       error
}

// Stats are local, unverified lifetime numbers
type Stats struct {
	BestScore      int64
	LifetimeBanked int64
	RunsPlayed     int
}

// DefaultStats is the zero-run starting point
var DefaultStats = Stats{BestScore: 1}

// UpdateStatsForRun folds a finished run into stats
func UpdateStatsForRun(stats Stats, snap game.Snapshot) Stats {
	updated := stats
	updated.RunsPlayed++
	if snap.Outcome == game.OutcomeCashedOut {
		if snap.Value > updated.BestScore {
			updated.BestScore = snap.Value
		}
		updated.LifetimeBanked += snap.Value
	}
	return updated
}

// AppState is everything the UI renders
type AppState struct {
	Auth         AuthState
	Game         game.Snapshot
	Verification RunVerification
	Leaderboard  LeaderboardState
	Stats        Stats
	LastResult   *service.SubmitResult
}

// EventKind classifies controller notifications
type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventSuccess      EventKind = "success"
	EventWarning      EventKind = "warning"
	EventError        EventKind = "error"
)

// Event is published to subscribers after every transition
type Event struct {
	Kind    EventKind
	Message string
	State   AppState
}
