package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"doubleordie/crypto"
	"doubleordie/game"
)

// RunAudit is the read-only verification report for a stored run
type RunAudit struct {
	Valid         bool      `json:"valid"`
	RunID         string    `json:"run_id"`
	UserID        string    `json:"user_id"`
	SeasonID      string    `json:"season_id"`
	Score         int64     `json:"score"`
	Doubles       int       `json:"doubles"`
	DurationMs    int64     `json:"duration_ms"`
	DigestHash    string    `json:"digest_hash"`
	HashMatches   bool      `json:"hash_matches"`
	MetricsPass   bool      `json:"metrics_pass"`
	DigestActions int       `json:"digest_actions"`
	CreatedAt     time.Time `json:"created_at"`
	Error         string    `json:"error,omitempty"`
}

// VerifyRun re-checks a stored run: the digest must still hash to the
// recorded fingerprint and the metrics must pass the submit checks again
func (s *Service) VerifyRun(ctx context.Context, runID string) (*RunAudit, error) {
	if runID == "" {
		return nil, reject(ErrInvalidRequest, "Missing run id.")
	}

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, storageFailure("Failed to load run.", err)
	}
	if run == nil {
		return nil, reject(ErrRunNotFound, "Run not found.")
	}

	audit := &RunAudit{
		RunID:      run.ID,
		UserID:     run.UserID,
		SeasonID:   run.SeasonID,
		Score:      run.Score,
		Doubles:    run.Doubles,
		DurationMs: run.DurationMs,
		DigestHash: run.DigestHash,
		CreatedAt:  run.CreatedAt,
	}

	audit.HashMatches = crypto.VerifyDigest(run.Digest, run.DigestHash)
	audit.MetricsPass = CheckPlausibility(&RunMetrics{
		FinalScore: run.Score,
		Doubles:    int64(run.Doubles),
		DurationMs: run.DurationMs,
	}) == nil

	var digest game.Digest
	if err := json.Unmarshal([]byte(run.Digest), &digest); err == nil {
		audit.DigestActions = len(digest.Actions)
	}

	switch {
	case !audit.HashMatches:
		audit.Error = "Digest hash does not match"
	case !audit.MetricsPass:
		audit.Error = "Run metrics fail verification"
	default:
		audit.Valid = true
	}

	log.Printf("✅ Run verified - RunID: %s, Score: x%d, Valid: %t", run.ID, run.Score, audit.Valid)
	return audit, nil
}
