package server

import (
	"net/http"
	"time"

	"github.com/raidstats/raid-chat/internal/monitor"
	"github.com/raidstats/raid-chat/internal/session"
	"github.com/raidstats/raid-chat/internal/statdb"
)

// HealthHandler provides liveness, readiness and version endpoints.
type HealthHandler struct {
	db       *statdb.DB
	registry *session.Registry
	monitor  *monitor.Monitor
	version  string
	started  time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *statdb.DB, registry *session.Registry, mon *monitor.Monitor, version string) *HealthHandler {
	return &HealthHandler{
		db:       db,
		registry: registry,
		monitor:  mon,
		version:  version,
		started:  time.Now(),
	}
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the detailed health report.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// HandleHealth handles GET /healthz (liveness).
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady handles GET /readyz (readiness). The server is ready when the
// raid database answers a ping.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleVersion handles GET /v1/version
func (h *HealthHandler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

// HandleDetailedHealth handles GET /v1/health
func (h *HealthHandler) HandleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)

	dbHealth := ComponentHealth{Status: "healthy"}
	if err := h.db.Ping(r.Context()); err != nil {
		dbHealth = ComponentHealth{Status: "unhealthy", Error: err.Error()}
	}
	components["database"] = dbHealth

	window := h.monitor.RecentWindow(5 * time.Minute)
	components["pipeline"] = ComponentHealth{Status: window.Status}

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	} else if window.Status == "degraded" {
		status = "degraded"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:     status,
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: components,
	})
}

// RegisterRoutes registers health routes with the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /readyz", h.HandleReady)
	mux.HandleFunc("GET /v1/version", h.HandleVersion)
	mux.HandleFunc("GET /v1/health", h.HandleDetailedHealth)
}
