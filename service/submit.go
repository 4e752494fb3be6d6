package service

import (
	"context"
	"log"
	"strconv"
	"strings"

	"doubleordie/config"
	"doubleordie/crypto"
	"doubleordie/db"

	"github.com/google/uuid"
)

// SubmitRequest is the submitRun body
type SubmitRequest struct {
	RunToken   string `json:"run_token"`
	FinalScore Metric `json:"final_score"`
	Doubles    Metric `json:"doubles"`
	DurationMs Metric `json:"duration_ms"`
	Digest     string `json:"digest"`
}

// Metric holds the raw JSON text of a numeric field. Quoted strings keep
// their quotes so they fail integer parsing instead of being coerced.
type Metric string

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ""
		return nil
	}
	*m = Metric(data)
	return nil
}

// SubmitResult is the verdict for an accepted run
type SubmitResult struct {
	Accepted    bool   `json:"accepted"`
	NewBest     bool   `json:"new_best"`
	CrownStolen bool   `json:"crown_stolen"`
	RunID       string `json:"run_id,omitempty"`
}

// RunMetrics are the parsed integer metrics of a submission
type RunMetrics struct {
	FinalScore int64
	Doubles    int64
	DurationMs int64
}

// SubmitRun verifies a finished run and applies it to the season ledger.
// Each step short-circuits; the token is spent once claimed even if a later step fails.
func (s *Service) SubmitRun(ctx context.Context, authorization string, req *SubmitRequest) (*SubmitResult, error) {
	userID, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return nil, err
	}
	return s.SubmitRunAs(ctx, userID, req)
}

// SubmitRunAs runs the submit pipeline for an already authenticated user
func (s *Service) SubmitRunAs(ctx context.Context, userID string, req *SubmitRequest) (*SubmitResult, error) {
	metrics, err := ParseSubmission(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recent, err := s.store.CountRecentRuns(ctx, userID, now.Add(-config.RateLimitWindow))
	if err != nil {
		return nil, storageFailure("Failed to check run history.", err)
	}
	if recent >= config.RateLimitMaxRuns {
		log.Printf("⚠️  Rate limited %s (%d runs in window)", userID, recent)
		return nil, reject(ErrRateLimited, "Too many runs. Try again in a minute.")
	}

	if err := CheckPlausibility(metrics); err != nil {
		log.Printf("⚠️  Rejected run from %s: %v", userID, err)
		return nil, err
	}

	seasonID, ok, err := s.store.ConsumeRunToken(ctx, req.RunToken, userID, now)
	if err != nil {
		return nil, storageFailure("Failed to consume token.", err)
	}
	if !ok {
		return nil, s.diagnoseToken(ctx, req.RunToken, userID)
	}

	run := &db.RunRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		SeasonID:   seasonID,
		Score:      metrics.FinalScore,
		Doubles:    int(metrics.Doubles),
		DurationMs: metrics.DurationMs,
		Digest:     req.Digest,
		DigestHash: crypto.DigestHash(req.Digest),
		IsValid:    true,
		CreatedAt:  now,
	}

	ledger, err := s.store.RecordRun(ctx, run)
	if err != nil {
		log.Printf("❌ Failed to record run for %s: %v", userID, err)
		return nil, storageFailure("Failed to write run.", err)
	}

	if err := s.cache.Invalidate(ctx, seasonID); err != nil {
		log.Printf("⚠️  %v", err)
	}

	if ledger.CrownStolen {
		log.Printf("👑 %s took the crown for season %s with x%d", userID, seasonID, run.Score)
	}

	return &SubmitResult{
		Accepted:    true,
		NewBest:     ledger.NewBest,
		CrownStolen: ledger.CrownStolen,
		RunID:       run.ID,
	}, nil
}

// ParseSubmission checks the body shape and parses the integer metrics
func ParseSubmission(req *SubmitRequest) (*RunMetrics, error) {
	invalid := reject(ErrInvalidRequest, "Invalid request body.")

	if req == nil || strings.TrimSpace(req.RunToken) == "" || req.Digest == "" {
		return nil, invalid
	}
	if len(req.Digest) > config.MaxDigestBytes {
		return nil, reject(ErrInvalidRequest, "Digest too large.")
	}

	var metrics RunMetrics
	for _, field := range []struct {
		raw Metric
		dst *int64
	}{
		{req.FinalScore, &metrics.FinalScore},
		{req.Doubles, &metrics.Doubles},
		{req.DurationMs, &metrics.DurationMs},
	} {
		if field.raw == "" {
			return nil, invalid
		}
		v, err := strconv.ParseInt(string(field.raw), 10, 64)
		if err != nil {
			return nil, invalid
		}
		*field.dst = v
	}

	return &metrics, nil
}

// CheckPlausibility applies the doubling law and the timing bounds
func CheckPlausibility(m *RunMetrics) error {
	if m.FinalScore < 0 || m.Doubles < 0 || m.DurationMs < 0 {
		return reject(ErrRunVerificationFailed, "Invalid metrics.")
	}
	if m.Doubles > config.MaxDoubles {
		return reject(ErrRunVerificationFailed, "Too many doubles.")
	}
	if m.FinalScore != int64(1)<<m.Doubles {
		return reject(ErrRunVerificationFailed, "Score does not match doubles.")
	}
	if m.DurationMs < m.Doubles*config.MinActionDeltaMs {
		return reject(ErrRunVerificationFailed, "Run was too fast.")
	}
	if m.DurationMs > config.MaxRunDurationMs {
		return reject(ErrRunVerificationFailed, "Run took too long.")
	}
	return nil
}

// diagnoseToken picks the message for a failed claim. It never grants anything.
func (s *Service) diagnoseToken(ctx context.Context, tokenID, userID string) error {
	token, err := s.store.GetRunToken(ctx, tokenID)
	if err == nil && token != nil && token.UserID == userID && !token.Used && !token.ExpiresAt.After(s.now()) {
		return reject(ErrInvalidOrReusedToken, "Run token expired.")
	}
	return reject(ErrInvalidOrReusedToken, "Invalid or used run token.")
}
