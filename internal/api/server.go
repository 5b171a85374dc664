package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/adventure"
	"github.com/AaronLay10/AdventureEngine/internal/events"
	"github.com/AaronLay10/AdventureEngine/internal/storage/postgres"
)

// EventHistory returns stored events, newest first.
type EventHistory interface {
	Query(limit int) ([]postgres.EventRow, error)
}

// Reloader re-reads the definition file.
type Reloader interface {
	Reload() error
}

// Options configures a Server.
type Options struct {
	Engine *adventure.Engine
	// AdventurePath is where studio saves are written. Empty keeps saves in memory.
	AdventurePath string
	Reloader      Reloader
	History       EventHistory
	PublishRate   float64
	PublishBurst  int
}

// Server serves the step handlers, the studio and the operational endpoints.
type Server struct {
	engine   *adventure.Engine
	path     string
	reloader Reloader
	history  EventHistory
	limiter  *ipRateLimiter
}

// NewServer creates a server over o.Engine.
func NewServer(o Options) *Server {
	return &Server{
		engine:   o.Engine,
		path:     o.AdventurePath,
		reloader: o.Reloader,
		history:  o.History,
		limiter:  newIPRateLimiter(o.PublishRate, o.PublishBurst),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/handler/fetch_current_step", s.stepHandler(opCurrent))
	mux.HandleFunc("/handler/submit", s.stepHandler(opNext))
	mux.HandleFunc("/handler/fetch_previous_step", s.stepHandler(opPrevious))
	mux.HandleFunc("/handler/start_over", s.stepHandler(opStartOver))
	mux.Handle("/handler/publish_event", s.limiter.Middleware(http.HandlerFunc(publishEventHandler)))

	mux.HandleFunc("/studio", RequireAdmin(studioUIHandler))
	mux.HandleFunc("/studio/adventure", RequireAdmin(s.studioAdventureHandler))
	mux.HandleFunc("/studio/reload", RequireAdmin(s.studioReloadHandler))

	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", RequireAdmin(s.eventsHandler))
	mux.HandleFunc("/ws/events", RequireAdmin(wsEventsHandler))

	return mux
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "adventure",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// eventsHandler returns the in-memory buffer, or stored history when
// ?source=db is given and a history backend is configured.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Query().Get("source") != "db" {
		_ = json.NewEncoder(w).Encode(events.Snapshot())
		return
	}

	if s.history == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(StudioResponse{OK: false, Error: "event history not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.history.Query(limit)
	if err != nil {
		log.Printf("api: event history query failed: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(StudioResponse{OK: false, Error: "event history unavailable"})
		return
	}
	if rows == nil {
		rows = []postgres.EventRow{}
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// TLS is used when configured.
func (s *Server) Serve(ctx context.Context, addr string) error {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tlsCfg != nil {
			srv.TLSConfig = tlsCfg
			log.Printf("api: listening on %s (TLS)", addr)
			err = srv.ListenAndServeTLS("", "")
		} else {
			log.Printf("api: listening on %s", addr)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events.CloseAllSubscribers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
