package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"doubleordie/api"
	"doubleordie/auth"
	"doubleordie/config"
	"doubleordie/db"
	"doubleordie/service"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatal("❌ Config error:", err)
	}

	// Initialize database connections
	store, err := openStore(settings)
	if err != nil {
		log.Fatal("❌ Database error:", err)
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(settings.RedisURL, settings.RedisPassword, settings.RedisDB); err != nil {
		log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
		log.Println("   Leaderboard responses will not be cached")
	}
	defer db.CloseRedis()

	if settings.JWTSecret == "" {
		log.Println("⚠️  Warning: SUPABASE_JWT_SECRET not set, every authenticated request will be rejected")
	}
	verifier := auth.NewJWTVerifier(settings.JWTSecret, settings.JWTAudience)

	svc := service.New(store, db.NewLeaderboardCache(db.RedisClient), verifier)
	go pruneRunTokens(svc)

	router := api.NewRouter(api.NewServer(svc, settings.AllowOrigin))

	addr := settings.ServerAddr
	log.Printf("🚀 Server starting on %s", addr)
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   POST /api/runs/start - Issue a single-use run token")
	log.Println("   POST /api/runs/submit - Verify and record a cashed-out run")
	log.Println("   GET  /api/runs/{id}/verify - Re-check a stored run digest")
	log.Println("   GET  /api/leaderboard - Season leaderboard + crown (player_rank with bearer)")
	log.Println("   GET  /api/season - Active season")
	log.Println("   GET  /api/social - Recent new bests and crown steals")
	log.Println("   GET  /api/profile - Caller profile")
	log.Println("   PUT  /api/profile - Set username and theme")
	log.Println("   GET  /api/health - Health check (store + Redis)")
	log.Println("")

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("❌ Server error:", err)
	}
}

// openStore connects to PostgreSQL when DATABASE_URL is set. Only an unset
// URL selects the in-memory dev store; a configured but failing database is fatal.
func openStore(settings *config.Settings) (service.Store, error) {
	if settings.DatabaseURL == "" {
		log.Println("⚠️  Warning: DATABASE_URL not set")
		log.Println("   Using in-memory store; runs and leaderboards will not persist")
		memory := db.NewMemoryStore()
		seedDevSeason(memory)
		return memory, nil
	}

	if err := db.InitPostgres(settings.DatabaseURL); err != nil {
		return nil, err
	}
	return db.NewPostgresStore(db.PostgresPool), nil
}

// pruneRunTokens drops long-expired tokens every hour
func pruneRunTokens(svc *service.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		removed, err := svc.PruneRunTokens(ctx, 24*time.Hour)
		cancel()

		if err != nil {
			log.Printf("⚠️  Failed to prune run tokens: %v", err)
			continue
		}
		if removed > 0 {
			log.Printf("🧹 Pruned %d expired run tokens", removed)
		}
	}
}

// seedDevSeason opens a season so the in-memory store is playable
func seedDevSeason(store *db.MemoryStore) {
	now := time.Now().UTC()
	season := &db.SeasonRecord{
		ID:       "dev-" + now.Format("2006-01"),
		Name:     "Dev Season " + now.Format("Jan 2006"),
		StartsAt: now,
		EndsAt:   now.AddDate(0, 1, 0),
	}
	if err := store.ActivateSeason(context.Background(), season); err != nil {
		log.Printf("⚠️  Failed to open dev season: %v", err)
	}
}
