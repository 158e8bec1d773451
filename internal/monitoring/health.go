package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// StatusChecker tracks progress of a batch run for the /healthz endpoint.
type StatusChecker struct {
	mu             sync.RWMutex
	runsCompleted  int
	runsTotal      int
	currentSymbols []string
	errors         []string
}

type RunStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	RunsCompleted  int       `json:"runs_completed"`
	RunsTotal      int       `json:"runs_total"`
	CurrentSymbols []string  `json:"current_symbols,omitempty"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewStatusChecker(runsTotal int, symbols []string) *StatusChecker {
	return &StatusChecker{
		runsTotal:      runsTotal,
		currentSymbols: symbols,
		errors:         make([]string, 0),
	}
}

// RunCompleted marks one run as finished.
func (s *StatusChecker) RunCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runsCompleted++
}

// RecordFailure stores a run failure for the status response.
func (s *StatusChecker) RecordFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *StatusChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := "running"
	if s.runsCompleted >= s.runsTotal {
		status = "complete"
	}
	if len(s.errors) > 0 {
		status = "failing"
		w.WriteHeader(http.StatusInternalServerError)
	}

	resp := RunStatus{
		Status:         status,
		Timestamp:      time.Now(),
		RunsCompleted:  s.runsCompleted,
		RunsTotal:      s.runsTotal,
		CurrentSymbols: s.currentSymbols,
		Uptime:         time.Since(startTime).String(),
		Errors:         s.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Serve starts an HTTP server exposing /metrics and /healthz in the
// background. Intended for long optimization sweeps; errors from the
// listener are reported through errCh.
func Serve(addr string, checker *StatusChecker) <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/healthz", checker)

	errCh := make(chan error, 1)
	go func() {
		errCh <- http.ListenAndServe(addr, mux)
	}()
	return errCh
}
