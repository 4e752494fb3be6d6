package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
)

/* =========================
   SEASONS
========================= */

// ActiveSeason returns the newest active season, or nil when none is open
func (s *PostgresStore) ActiveSeason(ctx context.Context) (*SeasonRecord, error) {
	query := `
		SELECT id, name, starts_at, ends_at, is_active
		FROM seasons
		WHERE is_active = true
		ORDER BY starts_at DESC
		LIMIT 1
	`

	var season SeasonRecord
	err := s.pool.QueryRow(ctx, query).Scan(
		&season.ID,
		&season.Name,
		&season.StartsAt,
		&season.EndsAt,
		&season.IsActive,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}

	return &season, nil
}

// ActivateSeason upserts a season and makes it the only active one
func (s *PostgresStore) ActivateSeason(ctx context.Context, season *SeasonRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin season tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE seasons SET is_active = false WHERE id <> $1 AND is_active`, season.ID); err != nil {
		return fmt.Errorf("failed to deactivate seasons: %w", err)
	}

	query := `
		INSERT INTO seasons (id, name, starts_at, ends_at, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    starts_at = EXCLUDED.starts_at,
		    ends_at = EXCLUDED.ends_at,
		    is_active = true
	`
	if _, err := tx.Exec(ctx, query, season.ID, season.Name, season.StartsAt, season.EndsAt); err != nil {
		return fmt.Errorf("failed to upsert season: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit season: %w", err)
	}

	season.IsActive = true
	log.Printf("✅ Activated season %s (%s)", season.ID, season.Name)
	return nil
}

/* =========================
   RUN TOKENS
========================= */

// InsertRunToken stores a freshly issued token
func (s *PostgresStore) InsertRunToken(ctx context.Context, token *RunTokenRecord) error {
	query := `
		INSERT INTO run_tokens
		(token_id, user_id, season_id, server_nonce, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
	`

	_, err := s.pool.Exec(
		ctx,
		query,
		token.TokenID,
		token.UserID,
		token.SeasonID,
		token.ServerNonce,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to store run token: %w", err)
	}

	return nil
}

// ConsumeRunToken claims an unused, unexpired token owned by userID in one
// conditional UPDATE. ok is false when nothing matched.
func (s *PostgresStore) ConsumeRunToken(ctx context.Context, tokenID, userID string, now time.Time) (string, bool, error) {
	query := `
		UPDATE run_tokens
		SET used = true,
		    consumed_at = $3
		WHERE token_id = $1 AND user_id = $2 AND used = false AND expires_at > $3
		RETURNING season_id
	`

	var seasonID string
	err := s.pool.QueryRow(ctx, query, tokenID, userID, now).Scan(&seasonID)

	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume run token: %w", err)
	}

	return seasonID, true, nil
}

// GetRunToken reads a token without changing it
func (s *PostgresStore) GetRunToken(ctx context.Context, tokenID string) (*RunTokenRecord, error) {
	query := `
		SELECT token_id, user_id, season_id, server_nonce, expires_at, used, consumed_at, created_at
		FROM run_tokens
		WHERE token_id = $1
	`

	var token RunTokenRecord
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&token.TokenID,
		&token.UserID,
		&token.SeasonID,
		&token.ServerNonce,
		&token.ExpiresAt,
		&token.Used,
		&token.ConsumedAt,
		&token.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run token: %w", err)
	}

	return &token, nil
}

// DeleteExpiredRunTokens prunes tokens that expired before cutoff
func (s *PostgresStore) DeleteExpiredRunTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM run_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune run tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

/* =========================
   RUNS
========================= */

// CountRecentRuns counts a user's accepted runs created after since
func (s *PostgresStore) CountRecentRuns(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM runs WHERE user_id = $1 AND created_at > $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent runs: %w", err)
	}
	return count, nil
}

// GetRun reads one accepted run, digest included
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
		SELECT id, user_id, season_id, score, doubles, duration_ms, digest, digest_hash, is_valid, created_at
		FROM runs
		WHERE id = $1
	`

	var run RunRecord
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.UserID,
		&run.SeasonID,
		&run.Score,
		&run.Doubles,
		&run.DurationMs,
		&run.Digest,
		&run.DigestHash,
		&run.IsValid,
		&run.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// RecordRun persists a run and applies it to the leaderboard, crown and
// social feed in a single transaction
func (s *PostgresStore) RecordRun(ctx context.Context, run *RunRecord) (*LedgerResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin run tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertRun := `
		INSERT INTO runs
		(id, user_id, season_id, score, doubles, duration_ms, digest, digest_hash, is_valid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.Exec(
		ctx,
		insertRun,
		run.ID,
		run.UserID,
		run.SeasonID,
		run.Score,
		run.Doubles,
		run.DurationMs,
		run.Digest,
		run.DigestHash,
		run.IsValid,
		run.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to write run: %w", err)
	}

	// Upsert only when the new score beats the stored best; a returned row means it did.
	upsertBest := `
		INSERT INTO leaderboard (season_id, user_id, best_score, best_run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (season_id, user_id) DO UPDATE
		SET best_score = EXCLUDED.best_score,
		    best_run_id = EXCLUDED.best_run_id,
		    updated_at = EXCLUDED.updated_at
		WHERE leaderboard.best_score < EXCLUDED.best_score
		RETURNING best_run_id
	`
	newBest, err := conditionalUpsert(ctx, tx, upsertBest, run.SeasonID, run.UserID, run.Score, run.ID, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update leaderboard: %w", err)
	}

	upsertCrown := `
		INSERT INTO crown (season_id, user_id, score, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (season_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    score = EXCLUDED.score,
		    run_id = EXCLUDED.run_id,
		    updated_at = EXCLUDED.updated_at
		WHERE crown.score < EXCLUDED.score
		RETURNING run_id
	`
	crownStolen, err := conditionalUpsert(ctx, tx, upsertCrown, run.SeasonID, run.UserID, run.Score, run.ID, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update crown: %w", err)
	}

	insertEvent := `
		INSERT INTO social_events (season_id, user_id, kind, score, run_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, ev := range []struct {
		happened bool
		kind     string
	}{{newBest, EventNewBest}, {crownStolen, EventCrownStolen}} {
		if !ev.happened {
			continue
		}
		if _, err := tx.Exec(ctx, insertEvent, run.SeasonID, run.UserID, ev.kind, run.Score, run.ID, run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to write social event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	log.Printf("✅ Stored run %s - User: %s, Score: x%d, NewBest: %t, Crown: %t",
		run.ID, run.UserID, run.Score, newBest, crownStolen)
	return &LedgerResult{NewBest: newBest, CrownStolen: crownStolen}, nil
}

// conditionalUpsert runs an INSERT ... ON CONFLICT ... WHERE ... RETURNING and
// reports whether a row was written
func conditionalUpsert(ctx context.Context, tx pgx.Tx, query string, args ...any) (bool, error) {
	var returned string
	err := tx.QueryRow(ctx, query, args...).Scan(&returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
