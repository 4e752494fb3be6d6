package api

import (
	"net/http"

	"doubleordie/db"
)

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// HandleHealthCheck handles health check requests
// GET /api/health
func (s *Server) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check the store (PostgreSQL or in-memory fallback)
	storeHealth := "ok"
	if err := s.svc.Ping(ctx); err != nil {
		storeHealth = "error: " + err.Error()
	}

	// Check Redis
	redisHealth := "ok"
	if db.RedisClient == nil {
		redisHealth = "disabled"
	} else if err := db.HealthCheck(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"store":   storeHealth,
		"redis":   redisHealth,
		"message": "Health check completed",
	})
}
