package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/* =========================
   LEADERBOARD
========================= */

// SeasonLeaderboard returns the top entries ordered by best score desc,
// earliest achievement first on ties. Rank matches PlayerSeasonRank, so exact
// ties share a rank; user_id only fixes the listing order.
func (s *PostgresStore) SeasonLeaderboard(ctx context.Context, seasonID string, limit int) ([]*LeaderboardRecord, error) {
	query := `
		SELECT l.season_id, l.user_id, p.username, l.best_score, l.best_run_id, l.updated_at,
		       (c.user_id IS NOT NULL) AS has_crown,
		       RANK() OVER (ORDER BY l.best_score DESC, l.updated_at ASC) AS rank
		FROM leaderboard l
		LEFT JOIN profiles p ON p.id = l.user_id
		LEFT JOIN crown c ON c.season_id = l.season_id AND c.user_id = l.user_id
		WHERE l.season_id = $1
		ORDER BY l.best_score DESC, l.updated_at ASC, l.user_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, seasonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	records := make([]*LeaderboardRecord, 0, limit)
	for rows.Next() {
		var record LeaderboardRecord
		if err := rows.Scan(
			&record.SeasonID,
			&record.UserID,
			&record.Username,
			&record.BestScore,
			&record.BestRunID,
			&record.UpdatedAt,
			&record.HasCrown,
			&record.Rank,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// PlayerSeasonRank returns a player's rank and best score, or nil when the
// player has no entry this season
func (s *PostgresStore) PlayerSeasonRank(ctx context.Context, seasonID, userID string) (*PlayerRankRecord, error) {
	query := `
		SELECT 1 + (
			SELECT COUNT(*)
			FROM leaderboard o
			WHERE o.season_id = l.season_id
			  AND (o.best_score > l.best_score
			       OR (o.best_score = l.best_score AND o.updated_at < l.updated_at))
		) AS rank,
		l.best_score
		FROM leaderboard l
		WHERE l.season_id = $1 AND l.user_id = $2
	`

	var record PlayerRankRecord
	err := s.pool.QueryRow(ctx, query, seasonID, userID).Scan(&record.Rank, &record.Score)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player rank: %w", err)
	}

	return &record, nil
}

// SeasonCrown returns the current crown holder, or nil when unclaimed
func (s *PostgresStore) SeasonCrown(ctx context.Context, seasonID string) (*CrownRecord, error) {
	query := `
		SELECT c.season_id, c.user_id, p.username, c.score, c.run_id, c.updated_at
		FROM crown c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.season_id = $1
	`

	var crown CrownRecord
	err := s.pool.QueryRow(ctx, query, seasonID).Scan(
		&crown.SeasonID,
		&crown.UserID,
		&crown.Username,
		&crown.Score,
		&crown.RunID,
		&crown.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crown: %w", err)
	}

	return &crown, nil
}

/* =========================
   SOCIAL FEED
========================= */

// RecentSocialEvents returns the newest feed entries for a season
func (s *PostgresStore) RecentSocialEvents(ctx context.Context, seasonID string, limit int) ([]*SocialEventRecord, error) {
	query := `
		SELECT e.id, e.season_id, e.user_id, p.username, e.kind, e.score, e.run_id, e.created_at
		FROM social_events e
		LEFT JOIN profiles p ON p.id = e.user_id
		WHERE e.season_id = $1
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, seasonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query social events: %w", err)
	}
	defer rows.Close()

	records := make([]*SocialEventRecord, 0, limit)
	for rows.Next() {
		var record SocialEventRecord
		if err := rows.Scan(
			&record.ID,
			&record.SeasonID,
			&record.UserID,
			&record.Username,
			&record.Kind,
			&record.Score,
			&record.RunID,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

/* =========================
   PROFILES
========================= */

// GetProfile returns a profile, or nil when the user has none
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	query := `
		SELECT id, username, theme, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var profile ProfileRecord
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Username,
		&profile.Theme,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// UpsertProfile creates or updates a profile
func (s *PostgresStore) UpsertProfile(ctx context.Context, profile *ProfileRecord) (*ProfileRecord, error) {
	query := `
		INSERT INTO profiles (id, username, theme, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    theme = EXCLUDED.theme,
		    updated_at = NOW()
		RETURNING id, username, theme, created_at, updated_at
	`

	var saved ProfileRecord
	err := s.pool.QueryRow(ctx, query, profile.ID, profile.Username, profile.Theme).Scan(
		&saved.ID,
		&saved.Username,
		&saved.Theme,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	return &saved, nil
}
