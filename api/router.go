package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"doubleordie/service"

	"github.com/fatih/color"
	"github.com/gorilla/mux"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Server binds HTTP handlers to the game service
type Server struct {
	svc         *service.Service
	allowOrigin string
}

func NewServer(svc *service.Service, allowOrigin string) *Server {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return &Server{svc: svc, allowOrigin: allowOrigin}
}

// NewRouter registers every endpoint
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggerMiddleware)
	r.Use(s.corsMiddleware)

	r.HandleFunc("/api/health", s.HandleHealthCheck).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/season", s.HandleGetSeason).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/runs/start", s.HandleStartRun).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/runs/submit", s.HandleSubmitRun).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/runs/{id}/verify", s.HandleVerifyRun).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/leaderboard", s.HandleGetLeaderboard).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/social", s.HandleGetSocialFeed).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/profile", s.HandleGetProfile).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/profile", s.HandleUpdateProfile).Methods(http.MethodPut)

	// mux skips r.Use middleware for these, so CORS is applied by hand
	r.MethodNotAllowedHandler = s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}))
	r.NotFoundHandler = s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusNotFound, "Not found")
	}))

	return r
}

/* =========================
   MIDDLEWARE
========================= */

// corsMiddleware adds CORS headers to allow frontend requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		// Handle preflight OPTIONS request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggerMiddleware logs each request with a status-colored line
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		logLine := color.GreenString
		switch {
		case wrapped.statusCode >= 500:
			logLine = color.RedString
		case wrapped.statusCode >= 400:
			logLine = color.YellowString
		}
		fmt.Fprintln(color.Output, logLine("[%s] %s %s - Status: %d - Duration: %v",
			start.Format("2006-01-02 15:04:05"), r.Method, r.URL.Path, wrapped.statusCode, duration))
	})
}

// responseWriter captures the status code for logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

/* =========================
   HELPER FUNCTIONS
========================= */

// sendJSON writes a JSON body with the given status
func sendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// sendError sends an error response
func sendError(w http.ResponseWriter, statusCode int, message string) {
	sendJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// sendServiceError maps a service rejection to its status and message
func sendServiceError(w http.ResponseWriter, err error) {
	sendError(w, service.StatusCode(err), service.Message(err))
}
