package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"docrag/internal/contextutil"
)

// IndexCounter reports how many records the vector index holds.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger checks that a remote dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	index              IndexCounter
	llm                Pinger
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. llm may be nil to skip the model check.
func NewHealthHandler(index IndexCounter, llm Pinger) *HealthHandler {
	return &HealthHandler{
		index:              index,
		llm:                llm,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP reports the status of the vector index and the language model.
// An unreachable index is unhealthy (503); an unreachable model only degrades (200).
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	status := "healthy"
	httpStatus := http.StatusOK

	if count, ok := h.checkIndex(checkCtx, logger); ok {
		checks["vector_index"] = "ok"
		checks["index_records"] = strconv.Itoa(count)
	} else {
		checks["vector_index"] = "error"
		issues = append(issues, "vector_index_unavailable")
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.llm != nil {
		if err := h.llm.Ping(checkCtx); err != nil {
			logger.WarnContext(ctx, "llm health check failed", "error", err)
			checks["llm"] = "error"
			issues = append(issues, "llm_unavailable")
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["llm"] = "ok"
		}
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}

func (h *HealthHandler) checkIndex(ctx context.Context, logger *slog.Logger) (int, bool) {
	count, err := h.index.Count(ctx)
	if err != nil {
		logger.WarnContext(ctx, "vector index health check failed", "error", err)
		return 0, false
	}
	return count, true
}
