package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/collector"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/lifecycle"
)

// Pinger reports storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthConfig carries the inputs for health evaluation.
type HealthConfig struct {
	// CollectInterval is the configured cycle cadence; the collector is
	// considered stale once no success has landed for StaleAfterIntervals
	// of these.
	CollectInterval time.Duration

	// StaleAfterIntervals defaults to 3 when zero.
	StaleAfterIntervals int

	StartTime time.Time
}

// Handler serves the ops surface: health and nothing else (metrics are
// mounted directly from observability).
type Handler struct {
	store        Pinger
	status       func() collector.Status
	healthConfig *HealthConfig
	logger       *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

func NewHandler(store Pinger, status func() collector.Status, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	return &Handler{
		store:        store,
		status:       status,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.store != nil {
		if h.store.Ping(r.Context()) == nil {
			checks["database"] = "healthy"
		} else {
			checks["database"] = "unhealthy"
		}
	}

	st := h.status()
	if h.collectorStale(st) {
		checks["collector"] = "stale"
	} else {
		checks["collector"] = "healthy"
	}

	resp := map[string]interface{}{
		"status":       result.status,
		"service":      "city-weather-collector",
		"checks":       checks,
		"cyclesOk":     st.CyclesOK,
		"cyclesFailed": st.CyclesFailed,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	if !st.LastSuccess.IsZero() {
		resp["lastSuccess"] = st.LastSuccess.UTC().Format(time.RFC3339)
	}
	if st.LastError != "" {
		resp["lastError"] = st.LastError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > database unreachable > collector stale > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "database_unreachable"}
		}
	}
	if h.collectorStale(h.status()) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "collector_stale"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// collectorStale reports whether the last successful cycle is overdue. A
// fresh process gets one staleness window of grace before it counts.
func (h *Handler) collectorStale(st collector.Status) bool {
	if h.healthConfig == nil || h.healthConfig.CollectInterval <= 0 {
		return false
	}
	n := h.healthConfig.StaleAfterIntervals
	if n <= 0 {
		n = 3
	}
	window := time.Duration(n) * h.healthConfig.CollectInterval

	last := st.LastSuccess
	if last.IsZero() {
		last = h.healthConfig.StartTime
	}
	if last.IsZero() {
		return false
	}
	return time.Since(last) > window
}
