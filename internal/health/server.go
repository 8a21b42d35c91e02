// Package health serves liveness and readiness probes for the optimizer worker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pickem-optimizer/internal/logger"
)

const (
	statusOK       = "ok"
	statusNotReady = "not_ready"

	defaultPort  = 8080
	checkTimeout = 3 * time.Second
)

// Pinger checks connectivity to a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Report is the body of every probe response.
type Report struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Commit    string            `json:"commit,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	// FreeJobSlots is how many more jobs the worker can start right now.
	FreeJobSlots *int   `json:"free_job_slots,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	Logger      *logrus.Logger
	// Checks are pinged by /ready, keyed by dependency name.
	Checks map[string]Pinger
	// FreeJobSlots, when set, is reported by /ready.
	FreeJobSlots func() int
}

// Server answers /health, /ready and /live.
type Server struct {
	cfg    Config
	names  []string
	ready  atomic.Bool
	server *http.Server
	logger *logrus.Logger
}

// NewServer creates a probe server. Port 0 means 8080.
func NewServer(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	names := make([]string, 0, len(cfg.Checks))
	for name := range cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Server{
		cfg:    cfg,
		names:  names,
		logger: logger.OrDiscard(cfg.Logger),
	}
}

// SetReady flips the readiness gate. The worker opens it once the scheduler runs.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady returns whether the gate is open.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// Handler returns the probe endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	return mux
}

// Start listens in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.cfg.Port).Info("Probe server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Probe server stopped unexpectedly")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("Probe server shutdown failed")
		}
	}()

	return nil
}

// Shutdown stops the listener, waiting up to five seconds for open requests.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Report{
		Status:    statusOK,
		Service:   s.cfg.ServiceName,
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Report{Status: statusOK, Service: s.cfg.ServiceName})
}

// handleReady is not_ready while the gate is closed or any dependency fails
// its ping. Free job slots are informational only.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report := Report{
		Status:  statusOK,
		Service: s.cfg.ServiceName,
		Checks:  map[string]string{"service": statusOK},
	}

	if !s.IsReady() {
		report.Status = statusNotReady
		report.Checks["service"] = statusNotReady
	}

	for _, name := range s.names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := s.cfg.Checks[name].Ping(ctx)
		cancel()

		if err != nil {
			report.Status = statusNotReady
			report.Checks[name] = "error: " + err.Error()
			continue
		}
		report.Checks[name] = statusOK
	}

	if s.cfg.FreeJobSlots != nil {
		free := s.cfg.FreeJobSlots()
		report.FreeJobSlots = &free
	}
	report.Duration = time.Since(start).String()

	code := http.StatusOK
	if report.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
