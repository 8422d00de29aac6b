// Package api serves the HTTP monitoring surface every long-running distfs
// process exposes: /healthz for a liveness probe and /status for the full
// component snapshot. Grounded on the teacher's pkg/api/server.go, trimmed
// to the two endpoints this domain needs and wired directly to
// pkg/health.Tracker rather than the teacher's separate long-running-
// operation status tracker, which has no attachment point in a process
// whose only long-running state is "is this skeleton still running."
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/distfs/distfs/pkg/health"
)

// Server is the monitoring HTTP server.
type Server struct {
	httpServer *http.Server
	tracker    *health.Tracker
}

// NewServer constructs a Server bound to addr (e.g. ":8090"), backed by
// tracker.
func NewServer(addr string, tracker *health.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		_ = s.httpServer.ListenAndServe()
	}()
}

// Stop closes the server immediately, including any active connections; it
// does not wait for in-flight requests to finish.
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// Address returns the server's configured bind address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.tracker.Overall() != health.StateHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type statusResponse struct {
	Overall    string                   `json:"overall"`
	Components []health.ComponentStatus `json:"components"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Overall:    s.tracker.Overall().String(),
		Components: s.tracker.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
