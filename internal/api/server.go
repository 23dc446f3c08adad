// Package api provides the HTTP server and handlers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/orgdesk/orgdesk/internal/auth"
	"github.com/orgdesk/orgdesk/internal/drive"
	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/management"
	"github.com/orgdesk/orgdesk/internal/metrics"
)

// Envelope is the uniform response shape for action and record endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	URL     string      `json:"url,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Server is the HTTP server.
type Server struct {
	drive   drive.Service
	records *management.Service
	auth    *auth.Auth
}

// NewServer creates a new server.
func NewServer(driveSvc drive.Service, records *management.Service, authHandler *auth.Auth) *Server {
	return &Server{
		drive:   driveSvc,
		records: records,
		auth:    authHandler,
	}
}

// Handler returns the HTTP handler with auth, logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/token", s.auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/totp/verify", s.handleTOTPVerify)

	// Protected endpoints
	protected := http.NewServeMux()

	// Multiplexed file actions
	protected.HandleFunc("POST /api/v1/actions", s.handleAction)

	// Management records
	protected.HandleFunc("GET /api/v1/management", s.handleListRecords)
	protected.HandleFunc("POST /api/v1/management", s.handleCreateRecord)
	protected.HandleFunc("GET /api/v1/management/{id}", s.handleGetRecord)
	protected.HandleFunc("PUT /api/v1/management/{id}", s.handleUpdateRecord)
	protected.HandleFunc("DELETE /api/v1/management/{id}", s.handleDeleteRecord)

	// TOTP 2FA endpoints (user-facing)
	protected.HandleFunc("POST /api/v1/auth/totp/setup", s.handleTOTPSetup)
	protected.HandleFunc("POST /api/v1/auth/totp/enable", s.handleTOTPEnable)
	protected.HandleFunc("POST /api/v1/auth/totp/disable", s.handleTOTPDisable)

	mux.Handle("/api/v1/", s.auth.Middleware(protected))

	return metrics.Middleware(logging.Middleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": "1.0"})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, Envelope{Success: false, Message: message})
}
