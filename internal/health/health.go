// Package health serves liveness, readiness and detailed status for the bot.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/stablearb/internal/logger"
)

const checkTimeout = 5 * time.Second

// Status is the /health response body.
type Status struct {
	Status    string            `json:"status"`
	Checks    map[string]Check  `json:"checks"`
	Info      map[string]string `json:"info,omitempty"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type Check struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// CheckFunc reports whether a component is healthy plus a short message.
type CheckFunc func(ctx context.Context) (bool, string)

// Server provides the health endpoints. Checks may be registered after Start.
type Server struct {
	port    int
	version string
	logger  logger.LoggerInterface

	mu     sync.RWMutex
	checks map[string]CheckFunc
	info   map[string]string
	server *http.Server
}

func NewServer(port int, version string, log logger.LoggerInterface) *Server {
	return &Server{
		port:    port,
		version: version,
		logger:  log,
		checks:  make(map[string]CheckFunc),
		info:    make(map[string]string),
	}
}

func (s *Server) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// SetInfo publishes a static key on /health, such as the trading mode.
func (s *Server) SetInfo(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info[key] = value
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
	return mux
}

// Start serves in the background. Listen errors are logged; the bot keeps
// trading without the endpoint.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn(context.Background(), "health server stopped", "port", s.port, "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// run evaluates every check concurrently.
func (s *Server) run(ctx context.Context) map[string]Check {
	s.mu.RLock()
	checks := maps.Clone(s.checks)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(checks))
		g       errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			healthy, msg := check(ctx)
			mu.Lock()
			results[name] = Check{Healthy: healthy, Message: msg}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func failing(results map[string]Check) []string {
	var names []string
	for name, c := range results {
		if !c.Healthy {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := s.run(r.Context())

	s.mu.RLock()
	info := maps.Clone(s.info)
	s.mu.RUnlock()

	status := Status{
		Status:    "ok",
		Checks:    results,
		Info:      info,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	code := http.StatusOK
	if len(failing(results)) > 0 {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// handleReady fails while any check fails and names the failing checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if down := failing(s.run(r.Context())); len(down) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: " + strings.Join(down, ",")))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
