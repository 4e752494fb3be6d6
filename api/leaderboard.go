// api/leaderboard.go
package api

import (
	"log"
	"net/http"
	"strconv"

	"doubleordie/config"
)

/* =========================
   HTTP ENDPOINTS
========================= */

// HandleGetLeaderboard handles GET /api/leaderboard
// A valid bearer credential adds the caller's player_rank and bypasses the shared cache
func (s *Server) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := ""
	if r.Header.Get("Authorization") != "" {
		if id, err := s.svc.Authenticate(ctx, r.Header.Get("Authorization")); err == nil {
			userID = id
		}
	}

	if userID == "" {
		body, err := s.svc.PublicLeaderboard(ctx)
		if err != nil {
			log.Printf("❌ Failed to get leaderboard: %v", err)
			sendServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", config.LeaderboardCacheControl)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	view, err := s.svc.Leaderboard(ctx, userID)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard: %v", err)
		sendServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	sendJSON(w, http.StatusOK, view)

	log.Printf("📋 Retrieved leaderboard with %d entries for %s", len(view.Leaderboard), userID)
}

// HandleGetSeason handles GET /api/season
func (s *Server) HandleGetSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.svc.FetchActiveSeason(r.Context())
	if err != nil {
		log.Printf("❌ Failed to get season: %v", err)
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"season": season,
	})
}

// HandleGetSocialFeed handles GET /api/social?limit=N
func (s *Server) HandleGetSocialFeed(w http.ResponseWriter, r *http.Request) {
	limit := config.SocialFeedDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := s.svc.SocialFeed(r.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to get social feed: %v", err)
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
