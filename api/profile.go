package api

import (
	"encoding/json"
	"log"
	"net/http"

	"doubleordie/service"
)

// HandleGetProfile handles GET /api/profile
func (s *Server) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.GetProfile(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
	})
}

// HandleUpdateProfile handles PUT /api/profile
func (s *Server) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	profile, err := s.svc.UpdateProfile(r.Context(), r.Header.Get("Authorization"), &req)
	if err != nil {
		if service.StatusCode(err) == http.StatusInternalServerError {
			log.Printf("❌ Failed to save profile: %v", err)
		}
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
	})

	log.Printf("✅ Saved profile %s (%s)", profile.ID, profile.Username)
}
