package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/mselser95/dutch-filler/internal/scheduler"
	"go.uber.org/zap"
)

// StatusProvider exposes the agent's latest cycle status.
type StatusProvider interface {
	Status() scheduler.Status
}

// StatusHandler handles HTTP requests for agent status.
type StatusHandler struct {
	provider StatusProvider
	logger   *zap.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(provider StatusProvider, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		provider: provider,
		logger:   logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleStatus handles GET /api/status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "method not allowed"})
		return
	}

	err := json.NewEncoder(w).Encode(h.provider.Status())
	if err != nil {
		h.logger.Error("status-encode-failed", zap.Error(err))
	}
}
