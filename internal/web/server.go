// Package web provides an HTTP status and control server for the ledctl daemon.
package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/ledctl/internal/command"
	"github.com/sweeney/ledctl/internal/metrics"
	"github.com/sweeney/ledctl/internal/status"
)

const (
	maxCommandBytes = 4 << 10
	commandTimeout  = 2 * time.Second
)

// Server serves the status page, metrics and the command endpoint over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	requests   chan<- command.Request
	done       <-chan struct{}
}

// New creates a Server that reads state from tracker and forwards commands to
// requests. done is closed when the control loop stops reading requests.
func New(addr string, tracker *status.Tracker, requests chan<- command.Request, done <-chan struct{}) *Server {
	s := &Server{tracker: tracker, requests: requests, done: done}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/command", s.handleCommand)
	mux.Handle("/metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// CommandResponse is the body of a POST /command reply.
type CommandResponse struct {
	Changed bool   `json:"changed"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeCommandResponse(w, http.StatusBadRequest, CommandResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	res, err := command.Submit(ctx, s.requests, s.done, body, "http")
	if err == nil {
		err = res.Err
	}
	if err != nil {
		writeCommandResponse(w, commandStatus(err), CommandResponse{Error: err.Error()})
		return
	}
	writeCommandResponse(w, http.StatusOK, CommandResponse{Changed: res.Changed})
}

// commandStatus maps a bad payload to 400 and an unavailable loop to 503.
func commandStatus(err error) int {
	if command.Invalid(err) {
		return http.StatusBadRequest
	}
	return http.StatusServiceUnavailable
}

func writeCommandResponse(w http.ResponseWriter, code int, resp CommandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
