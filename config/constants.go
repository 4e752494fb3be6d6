package config

import "time"

/* =========================
   GAME MECHANICS - DOUBLE OR DIE
========================= */

const (
	// Multiplier every run starts from
	StartValue = 1

	// Logistic crash curve
	RiskBase       = 0.08 // crash chance floor
	RiskGrowthRate = 0.34 // steepness of the curve
	RiskMidpoint   = 4.0  // step where the curve is halfway between base and cap
	RiskCap        = 0.92 // crash chance ceiling

	// Snapshots at or above this crash chance are flagged as high risk
	HighRiskThreshold = 0.7
)

/* =========================
   RUN TOKENS
========================= */

const (
	// Lifetime of a run token from issuance
	RunTokenTTL = 2 * time.Minute
)

/* =========================
   RUN VERIFICATION (ANTI-CHEAT)
========================= */

const (
	// Fastest a human can act between two doubles
	MinActionDeltaMs = 60

	// Longest plausible run, measured from token issuance
	MaxRunDurationMs = int64(2 * time.Minute / time.Millisecond)

	// Largest power of two a BIGINT score can hold
	MaxDoubles = 62

	// Upper bound on the opaque client digest
	MaxDigestBytes = 16000

	// Upper bound on the whole submitRun body
	MaxSubmitBodyBytes = 32 * 1024

	// Accepted runs allowed per user in the trailing window
	RateLimitMaxRuns = 20
	RateLimitWindow  = 60 * time.Second
)

/* =========================
   LEADERBOARD
========================= */

const (
	// Rows returned by the season leaderboard
	LeaderboardLimit = 50

	// Social feed page sizes
	SocialFeedDefaultLimit = 20
	SocialFeedMaxLimit     = 50

	// Client-side freshness window before the board is refetched
	ClientLeaderboardCacheTTL = 45 * time.Second

	// HTTP cache header for the public board
	LeaderboardCacheControl = "public, max-age=15, s-maxage=30"
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Public leaderboard body cached per season
	// Key: leaderboard:season:{seasonId}
	LeaderboardCacheTTL = 15 * time.Second
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisLeaderboardKey = "leaderboard:season:%s" // leaderboard:season:{seasonId}
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	// Connection pool settings
	MaxOpenConns    = 25
	MinIdleConns    = 5
	ConnMaxLifetime = 5 * time.Minute
)

/* =========================
   PROFILES
========================= */

const (
	UsernamePattern = `^[a-zA-Z0-9_]{3,24}$`
	DefaultTheme    = "dark"
)
