package api

import (
	"encoding/json"
	"log"
	"net/http"

	"doubleordie/config"
	"doubleordie/service"

	"github.com/gorilla/mux"
)

// SubmitErrorResponse is the submitRun rejection body
type SubmitErrorResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error"`
}

/* =========================
   RUN ENDPOINTS
========================= */

// HandleStartRun issues a run token
// POST /api/runs/start
func (s *Server) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.svc.StartRun(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		if service.StatusCode(err) == http.StatusInternalServerError {
			log.Printf("❌ startRun failed: %v", err)
		}
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ticket)
}

// HandleSubmitRun verifies a finished run
// POST /api/runs/submit
func (s *Server) HandleSubmitRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Authenticate before reading the body
	userID, err := s.svc.Authenticate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		sendSubmitError(w, err)
		return
	}

	var req service.SubmitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxSubmitBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, SubmitErrorResponse{Accepted: false, Error: "Invalid request body."})
		return
	}

	result, err := s.svc.SubmitRunAs(ctx, userID, &req)
	if err != nil {
		if service.StatusCode(err) == http.StatusInternalServerError {
			log.Printf("❌ submitRun failed: %v", err)
		}
		sendSubmitError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, result)
}

func sendSubmitError(w http.ResponseWriter, err error) {
	sendJSON(w, service.StatusCode(err), SubmitErrorResponse{
		Accepted: false,
		Error:    service.Message(err),
	})
}

// HandleVerifyRun re-checks a stored run against its digest fingerprint
// GET /api/runs/{id}/verify
func (s *Server) HandleVerifyRun(w http.ResponseWriter, r *http.Request) {
	audit, err := s.svc.VerifyRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if service.StatusCode(err) == http.StatusInternalServerError {
			log.Printf("❌ verifyRun failed: %v", err)
		}
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, audit)
}
