// Package healthprobe serves liveness and readiness of the filler agent.
package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks. Readiness also
// requires a recent scheduler heartbeat once StaleAfter is set.
type HealthChecker struct {
	startTime  time.Time
	staleAfter time.Duration
	ready      atomic.Bool
	lastBeat   atomic.Int64 // unix nanos
}

// New creates a new HealthChecker. A zero staleAfter disables the heartbeat check.
func New(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		staleAfter: staleAfter,
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Heartbeat records that a scheduler cycle finished at t.
func (h *HealthChecker) Heartbeat(t time.Time) {
	h.lastBeat.Store(t.UnixNano())
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	LastCycle string `json:"last_cycle,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Uptime:    time.Since(h.startTime).String(),
			LastCycle: h.lastCycle(),
		})
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 503 while starting or when cycles have stalled.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			})
			return
		}

		if h.stalled(time.Now()) {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:    "stalled",
				LastCycle: h.lastCycle(),
				Message:   "no scheduler cycle completed within " + h.staleAfter.String(),
			})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ready",
			Uptime:    time.Since(h.startTime).String(),
			LastCycle: h.lastCycle(),
		})
	}
}

func (h *HealthChecker) stalled(now time.Time) bool {
	if h.staleAfter <= 0 {
		return false
	}

	last := h.lastBeat.Load()
	if last == 0 {
		return now.Sub(h.startTime) > h.staleAfter
	}
	return now.Sub(time.Unix(0, last)) > h.staleAfter
}

func (h *HealthChecker) lastCycle() string {
	last := h.lastBeat.Load()
	if last == 0 {
		return ""
	}
	return time.Unix(0, last).UTC().Format(time.RFC3339Nano)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
