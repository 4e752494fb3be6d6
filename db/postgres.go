package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"doubleordie/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool
)

// ErrUsernameTaken is returned when a profile claims a username someone else holds
var ErrUsernameTaken = errors.New("username already taken")

// InitPostgres initializes the PostgreSQL connection pool
func InitPostgres(databaseURL string) error {
	log.Println("🔌 Connecting to PostgreSQL (Supabase)...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxOpenConns
	poolConfig.MinConns = config.MinIdleConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	PostgresPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := PostgresPool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully (Supabase)")

	if err := InitSchema(context.Background(), PostgresPool); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		log.Println("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("📋 Initializing database schema...")

	schemas := []struct {
		name string
		ddl  string
	}{
		{"seasons", `
		CREATE TABLE IF NOT EXISTS seasons (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT false
		);

		CREATE INDEX IF NOT EXISTS idx_seasons_active ON seasons(starts_at DESC) WHERE is_active;
		`},
		{"profiles", `
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			theme TEXT NOT NULL DEFAULT 'dark',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		`},
		{"run_tokens", `
		CREATE TABLE IF NOT EXISTS run_tokens (
			token_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			season_id TEXT NOT NULL REFERENCES seasons(id),
			server_nonce TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			used BOOLEAN NOT NULL DEFAULT false,
			consumed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		-- Stale tokens are pruned by expiry
		CREATE INDEX IF NOT EXISTS idx_run_tokens_expires_at ON run_tokens(expires_at);
		`},
		{"runs", `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			season_id TEXT NOT NULL REFERENCES seasons(id),
			score BIGINT NOT NULL CHECK (score > 0),
			doubles INTEGER NOT NULL CHECK (doubles >= 0),
			duration_ms BIGINT NOT NULL CHECK (duration_ms >= 0),
			digest TEXT NOT NULL,
			digest_hash TEXT NOT NULL,
			is_valid BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		-- Rate limiting counts a user's recent runs
		CREATE INDEX IF NOT EXISTS idx_runs_user_created_at ON runs(user_id, created_at DESC);
		`},
		{"leaderboard", `
		CREATE TABLE IF NOT EXISTS leaderboard (
			season_id TEXT NOT NULL REFERENCES seasons(id),
			user_id TEXT NOT NULL,
			best_score BIGINT NOT NULL,
			best_run_id TEXT NOT NULL REFERENCES runs(id),
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (season_id, user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_leaderboard_rank ON leaderboard(season_id, best_score DESC, updated_at ASC);
		`},
		{"crown", `
		CREATE TABLE IF NOT EXISTS crown (
			season_id TEXT PRIMARY KEY REFERENCES seasons(id),
			user_id TEXT NOT NULL,
			score BIGINT NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id),
			updated_at TIMESTAMPTZ NOT NULL
		);
		`},
		{"social_events", `
		CREATE TABLE IF NOT EXISTS social_events (
			id BIGSERIAL PRIMARY KEY,
			season_id TEXT NOT NULL REFERENCES seasons(id),
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('new_best', 'crown_stolen')),
			score BIGINT NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_social_events_created_at ON social_events(created_at DESC);
		`},
	}

	for _, schema := range schemas {
		if _, err := pool.Exec(ctx, schema.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", schema.name, err)
		}
	}

	log.Println("✅ Database schema initialized")
	return nil
}

/* =========================
   STORE
========================= */

// PostgresStore is the durable store behind the run and leaderboard services
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

/* =========================
   HEALTH CHECK
========================= */

// Ping lets the store report its own health
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
