// Package web serves the freshest weather record and the daemon status over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/weather-station/internal/fresh"
	"github.com/sweeney/weather-station/internal/fusion"
	"github.com/sweeney/weather-station/internal/metrics"
	"github.com/sweeney/weather-station/internal/status"
)

// DefaultWait bounds how long GET / waits for the next record.
const DefaultWait = 5 * time.Second

// Server serves records, the status page and metrics.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	tracker    *status.Tracker
	records    *fresh.Channel[fusion.Record]
	wait       time.Duration
}

// New creates a Server. records is this server's own output channel; GET /
// consumes from it and GET /latest only peeks. m may be nil, in which case
// /metrics is not served.
func New(addr string, tracker *status.Tracker, records *fresh.Channel[fusion.Record], m *metrics.Metrics) *Server {
	s := &Server{
		tracker: tracker,
		records: records,
		wait:    DefaultWait,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleNext).Methods("GET")
	r.HandleFunc("/latest", s.handleLatest).Methods("GET")
	r.HandleFunc("/index.html", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.json", s.handleJSON).Methods("GET")
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(os.Stdout, r),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetWait changes how long GET / waits for a record.
func (s *Server) SetWait(d time.Duration) {
	s.wait = d
}

// Handler returns the router without access logging. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
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

// handleNext waits for the next record published after the previous
// request consumed one.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.wait)
	defer cancel()

	rec, err := s.records.Receive(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			http.Error(w, "no record within "+s.wait.String(), http.StatusGatewayTimeout)
			return
		}
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	writeRecord(w, rec)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.records.Last()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeRecord(w, rec)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

func writeRecord(w http.ResponseWriter, rec fusion.Record) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
