package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"doubleordie/config"
	"doubleordie/game"
	"doubleordie/service"
)

// Controller drives one game session. Calls come from a single UI loop.
type Controller struct {
	engine      *game.Engine
	api         API
	auth        AuthProvider
	now         func() time.Time
	state       AppState
	subscribers []func(Event)
}

func NewController(engine *game.Engine, api API, auth AuthProvider) *Controller {
	if auth == nil {
		auth = NullAuth{}
	}
	c := &Controller{
		engine: engine,
		api:    api,
		auth:   auth,
		now:    time.Now,
	}
	c.state.Game = engine.Snapshot()
	c.state.Stats = DefaultStats
	return c
}

// SetClock replaces the time source
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// State returns a copy of the current application state
func (c *Controller) State() AppState {
	return c.state
}

// Subscribe registers fn for every future event
func (c *Controller) Subscribe(fn func(Event)) {
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) emit(kind EventKind, format string, args ...interface{}) {
	ev := Event{Kind: kind, Message: fmt.Sprintf(format, args...), State: c.state}
	for _, fn := range c.subscribers {
		fn(ev)
	}
}

/* =========================
   AUTH
========================= */

// SyncAuth reloads the session and profile and refreshes the board
func (c *Controller) SyncAuth(ctx context.Context) error {
	session, err := c.auth.Session(ctx)
	if err != nil {
		return err
	}

	c.state.Auth = AuthState{User: session}
	if session != nil {
		profile, err := c.auth.Profile(ctx, session)
		if err != nil {
			c.emit(EventError, "%v", err)
		}
		c.state.Auth.Profile = profile
	}

	c.emit(EventStateChanged, "")
	return c.LoadLeaderboard(ctx, true)
}

// SignIn starts a session and resyncs
func (c *Controller) SignIn(ctx context.Context, accessToken string) error {
	if _, err := c.auth.SignIn(ctx, accessToken); err != nil {
		return err
	}
	return c.SyncAuth(ctx)
}

// SignOut ends the session and resyncs
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		return err
	}
	c.resetVerification()
	c.emit(EventSuccess, "Signed out.")
	return c.SyncAuth(ctx)
}

// SaveProfile sets the signed-in player's username and theme
func (c *Controller) SaveProfile(ctx context.Context, username, theme string) error {
	if c.state.Auth.User == nil {
		return ErrAuthUnavailable
	}

	profile, err := c.api.SaveProfile(ctx, c.accessToken(), &service.ProfileUpdate{Username: username, Theme: theme})
	if err != nil {
		c.emit(EventError, "%s", errorMessage(err, "Failed to save profile."))
		return err
	}

	c.state.Auth.Profile = profile
	c.emit(EventSuccess, "Profile saved.")
	return c.LoadLeaderboard(ctx, true)
}

func (c *Controller) accessToken() string {
	if c.state.Auth.User == nil {
		return ""
	}
	return c.state.Auth.User.AccessToken
}

/* =========================
   GAME ACTIONS
========================= */

// Double starts a run when idle, then risks the current value
func (c *Controller) Double(ctx context.Context) game.Snapshot {
	before := c.engine.Snapshot()

	if before.Phase == game.PhaseIdle || before.Phase == game.PhaseSummary {
		if c.state.Auth.User != nil {
			c.ensureRunToken(ctx)
		}
		before = c.engine.Start()
	}

	after := c.engine.Double()
	c.state.Game = after
	c.recordEvent("double", after)
	c.handleRunEnd(before, after)

	if after.Phase == game.PhaseRunning && after.NextCrashChance >= config.HighRiskThreshold {
		c.emit(EventWarning, "High risk: %d%% crash chance next DOUBLE.", int(math.Round(after.NextCrashChance*100)))
	}

	c.emit(EventStateChanged, after.Message)
	return after
}

// CashOut banks the run and submits it for verification
func (c *Controller) CashOut(ctx context.Context) game.Snapshot {
	before := c.engine.Snapshot()
	after := c.engine.CashOut()
	c.state.Game = after

	c.recordEvent("cash_out", after)
	c.handleRunEnd(before, after)

	if before.Phase == game.PhaseRunning && after.Outcome == game.OutcomeCashedOut {
		c.submitVerifiedRun(ctx, after)
	}

	c.emit(EventStateChanged, after.Message)
	return after
}

func (c *Controller) handleRunEnd(before, after game.Snapshot) {
	if before.Phase != game.PhaseRunning || after.Phase != game.PhaseSummary {
		return
	}

	c.state.Stats = UpdateStatsForRun(c.state.Stats, after)

	switch after.Outcome {
	case game.OutcomeCrashed:
		c.resetVerification()
		c.emit(EventError, "Crash! Run ended with no banked multiplier.")
	case game.OutcomeCashedOut:
		c.emit(EventSuccess, "Cashed out at x%d.", after.Value)
	}
}

/* =========================
   RUN VERIFICATION
========================= */

func (c *Controller) resetVerification() {
	c.state.Verification = RunVerification{}
}

func (c *Controller) ensureRunToken(ctx context.Context) {
	c.resetVerification()

	ticket, err := c.api.StartRun(ctx, c.accessToken())
	if err != nil {
		c.emit(EventWarning, "%s", errorMessage(err, "Unable to verify run token."))
		return
	}

	c.state.Verification = RunVerification{
		Token:    ticket.RunToken,
		SeasonID: ticket.SeasonID,
		IssuedAt: c.now(),
	}
}

func (c *Controller) recordEvent(action string, snap game.Snapshot) {
	if !c.state.Verification.Active() {
		return
	}

	c.state.Verification.Events = append(c.state.Verification.Events, game.DigestAction{
		Action:  action,
		DeltaMs: c.now().Sub(c.state.Verification.IssuedAt).Milliseconds(),
		Value:   snap.Value,
		Doubles: snap.Doubles,
		Phase:   snap.Phase,
	})
}

func (c *Controller) submitVerifiedRun(ctx context.Context, summary game.Snapshot) {
	v := c.state.Verification
	if c.state.Auth.User == nil || !v.Active() {
		c.resetVerification()
		return
	}

	durationMs := c.now().Sub(v.IssuedAt).Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}

	digest, err := game.Digest{
		V:           game.DigestVersion,
		SeasonID:    v.SeasonID,
		StartedAtMs: v.IssuedAt.UnixMilli(),
		DurationMs:  durationMs,
		Outcome:     summary.Outcome,
		Actions:     v.Events,
	}.Encode()
	if err != nil {
		c.emit(EventWarning, "Run verification failed: %v", err)
		c.resetVerification()
		return
	}

	result, err := c.api.SubmitRun(ctx, c.accessToken(), &RunSubmission{
		RunToken:   v.Token,
		FinalScore: summary.Value,
		Doubles:    summary.Doubles,
		DurationMs: durationMs,
		Digest:     digest,
	})
	c.resetVerification()

	if err != nil {
		c.emit(EventWarning, "Run verification failed: %s", errorMessage(err, "unknown error"))
		return
	}

	c.state.LastResult = result
	switch {
	case result.CrownStolen:
		c.emit(EventSuccess, "You took the crown at x%d!", summary.Value)
	case result.NewBest:
		c.emit(EventSuccess, "New season best: x%d.", summary.Value)
	}

	if err := c.LoadLeaderboard(ctx, true); err != nil {
		c.emit(EventWarning, "Leaderboard unavailable: %v", err)
	}
}

/* =========================
   LEADERBOARD
========================= */

// LoadLeaderboard refreshes the board unless a fresh copy for the same
// identity is already held
func (c *Controller) LoadLeaderboard(ctx context.Context, force bool) error {
	userID := ""
	if c.state.Auth.User != nil {
		userID = c.state.Auth.User.UserID
	}

	lb := c.state.Leaderboard
	if !force && lb.View != nil && lb.FetchedBy == userID && c.now().Sub(lb.FetchedAt) < config.ClientLeaderboardCacheTTL {
		return nil
	}

	view, err := c.api.Leaderboard(ctx, c.accessToken())
	if err != nil {
		c.state.Leaderboard.Err = err
		c.emit(EventStateChanged, "")
		return err
	}

	social, err := c.api.SocialFeed(ctx, config.SocialFeedDefaultLimit)
	if err != nil {
		social = c.state.Leaderboard.Social
	}

	c.state.Leaderboard = LeaderboardState{
		View:      view,
		FetchedAt: c.now(),
		FetchedBy: userID,
		Social:    social,
	}
	c.emit(EventStateChanged, "")
	return nil
}

func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}
