package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"doubleordie/config"
	"doubleordie/crypto"
	"doubleordie/db"

	"github.com/google/uuid"
)

func main() {
	seasonID := flag.String("season", "", "season id (default: current month)")
	name := flag.String("name", "", "season display name")
	days := flag.Int("days", 30, "season length in days")
	samples := flag.Bool("samples", true, "seed sample leaderboard rows")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if settings.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	// Init postgres
	if err := db.InitPostgres(settings.DatabaseURL); err != nil {
		log.Fatalf("Failed to init postgres: %v", err)
	}
	defer db.ClosePostgres()

	ctx := context.Background()
	store := db.NewPostgresStore(db.PostgresPool)

	now := time.Now().UTC()
	if *seasonID == "" {
		*seasonID = "season-" + now.Format("2006-01")
	}
	if *name == "" {
		*name = "Season " + now.Format("January 2006")
	}

	season := &db.SeasonRecord{
		ID:       *seasonID,
		Name:     *name,
		StartsAt: now,
		EndsAt:   now.AddDate(0, 0, *days),
	}
	if err := store.ActivateSeason(ctx, season); err != nil {
		log.Fatalf("Failed to activate season: %v", err)
	}

	if *samples {
		seedSamples(ctx, store, season.ID, now)
	}

	records, err := store.SeasonLeaderboard(ctx, season.ID, config.LeaderboardLimit)
	if err != nil {
		log.Fatalf("Failed to get leaderboard: %v", err)
	}

	fmt.Printf("\nLeaderboard for %s (%d entries):\n", season.ID, len(records))
	for _, r := range records {
		crown := ""
		if r.HasCrown {
			crown = " 👑"
		}
		fmt.Printf("  #%d %s x%d%s\n", r.Rank, r.UserID, r.BestScore, crown)
	}
}

// seedSamples records one run per sample player through the normal ledger path
func seedSamples(ctx context.Context, store *db.PostgresStore, seasonID string, now time.Time) {
	players := []struct {
		userID  string
		doubles int
	}{
		{"seed-player-1", 9},
		{"seed-player-2", 7},
		{"seed-player-3", 7},
		{"seed-player-4", 5},
		{"seed-player-5", 3},
		{"seed-player-6", 1},
	}

	fmt.Println("Seeding leaderboard with test data...")

	for i, p := range players {
		digest := fmt.Sprintf(`{"v":1,"season_id":%q,"seeded":true}`, seasonID)
		run := &db.RunRecord{
			ID:         uuid.NewString(),
			UserID:     p.userID,
			SeasonID:   seasonID,
			Score:      int64(1) << p.doubles,
			Doubles:    p.doubles,
			DurationMs: int64(p.doubles) * 800,
			Digest:     digest,
			DigestHash: crypto.DigestHash(digest),
			IsValid:    true,
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		}

		result, err := store.RecordRun(ctx, run)
		if err != nil {
			log.Printf("Failed to seed %s: %v", p.userID, err)
			continue
		}
		fmt.Printf("  %s -> x%d (new best: %t)\n", p.userID, run.Score, result.NewBest)
	}
}
