package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
)

// HealthChecker reports the scheduler's liveness as JSON
type HealthChecker struct {
	mu         sync.RWMutex
	started    time.Time
	lastCycle  time.Time
	marketOpen bool
	stats      *boterrors.ErrorStats
	circuits   func() []string
	now        func() time.Time
}

// HealthStatus is the /health response body
type HealthStatus struct {
	Status       string         `json:"status"`
	Timestamp    time.Time      `json:"timestamp"`
	LastCycle    *time.Time     `json:"last_cycle,omitempty"`
	MarketOpen   bool           `json:"market_open"`
	Uptime       string         `json:"uptime"`
	TotalErrors  int            `json:"total_errors"`
	ErrorsByType map[string]int `json:"errors_by_category,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	OpenCircuits []string       `json:"open_circuits,omitempty"`
}

// NewHealthChecker creates a checker. circuits may be nil.
func NewHealthChecker(circuits func() []string) *HealthChecker {
	return &HealthChecker{
		started:  time.Now(),
		stats:    boterrors.NewErrorStats(20),
		circuits: circuits,
		now:      time.Now,
	}
}

// RecordCycle marks a completed cycle
func (h *HealthChecker) RecordCycle(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = at
}

// SetMarketOpen records the last market-hours decision
func (h *HealthChecker) SetMarketOpen(open bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marketOpen = open
}

// RecordError keeps err in the recent error window and counts it
func (h *HealthChecker) RecordError(err *boterrors.GatewayError) {
	if err == nil {
		return
	}
	h.mu.Lock()
	h.stats.RecordError(err)
	h.mu.Unlock()
	RecordError(string(err.Category))
}

// Status builds the current health snapshot. The bot is degraded while any
// circuit is open or, during market hours, when no cycle ran for staleAfter.
func (h *HealthChecker) Status(staleAfter time.Duration) HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := HealthStatus{
		Status:      "healthy",
		Timestamp:   now,
		MarketOpen:  h.marketOpen,
		Uptime:      now.Sub(h.started).Truncate(time.Second).String(),
		TotalErrors: h.stats.TotalErrors,
	}
	if !h.lastCycle.IsZero() {
		last := h.lastCycle
		status.LastCycle = &last
	}
	if len(h.stats.ErrorsByCategory) > 0 {
		status.ErrorsByType = make(map[string]int, len(h.stats.ErrorsByCategory))
		for category, n := range h.stats.ErrorsByCategory {
			status.ErrorsByType[string(category)] = n
		}
	}
	if last := h.stats.Last(); last != nil {
		status.LastError = last.Error()
	}
	if h.circuits != nil {
		status.OpenCircuits = h.circuits()
	}

	if len(status.OpenCircuits) > 0 {
		status.Status = "degraded"
	}
	if h.marketOpen && staleAfter > 0 && (h.lastCycle.IsZero() || now.Sub(h.lastCycle) > staleAfter) {
		status.Status = "degraded"
	}
	return status
}

// Handler serves Status as JSON; degraded answers 503
func (h *HealthChecker) Handler(staleAfter time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := h.Status(staleAfter)

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}

// NewServeMux mounts /metrics and /health
func NewServeMux(h *HealthChecker, staleAfter time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/health", h.Handler(staleAfter))
	return mux
}
