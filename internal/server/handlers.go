package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/raidstats/raid-chat/internal/cache"
	"github.com/raidstats/raid-chat/internal/chat"
	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/monitor"
	"github.com/raidstats/raid-chat/internal/pkg/security"
	"github.com/raidstats/raid-chat/internal/session"
)

// ChatHandler provides HTTP handlers for the chat pipeline.
type ChatHandler struct {
	svc         *chat.Service
	queryCache  cache.Cache
	resultCache cache.Cache
	registry    *session.Registry
	monitor     *monitor.Monitor
	monitorCfg  config.MonitorConfig
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, queryCache, resultCache cache.Cache, registry *session.Registry, mon *monitor.Monitor, monitorCfg config.MonitorConfig) *ChatHandler {
	return &ChatHandler{
		svc:         svc,
		queryCache:  queryCache,
		resultCache: resultCache,
		registry:    registry,
		monitor:     mon,
		monitorCfg:  monitorCfg,
	}
}

// ChatRequest is the JSON request body for chat.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// FeedbackRequest is the JSON request body for feedback.
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
	Feedback  string `json:"feedback"`
}

// StatsResponse aggregates cache, session and pipeline statistics.
type StatsResponse struct {
	QueryCache  cache.Stats          `json:"query_cache"`
	ResultCache cache.Stats          `json:"result_cache"`
	Sessions    int                  `json:"sessions"`
	Performance monitor.Summary      `json:"performance"`
	Window      monitor.WindowStats  `json:"window"`
	Alerts      []string             `json:"alerts,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// HandleChat handles POST /v1/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := security.ValidateQuestion(req.Question); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := security.ValidateSessionID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := h.svc.Ask(r.Context(), chat.Request{
		Question:  security.SanitizeQuestion(req.Question),
		SessionID: req.SessionID,
	})

	writeJSON(w, http.StatusOK, resp)
}

// HandleFeedback handles POST /v1/feedback
func (h *ChatHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if err := security.ValidateSessionID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := security.ValidateFeedback(req.Feedback); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.svc.AttachFeedback(r.Context(), req.SessionID, req.Feedback) {
		writeError(w, http.StatusNotFound, "no conversation found for session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

// HandleSuggestions handles GET /v1/suggestions
func (h *ChatHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := 5
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = n
	}

	suggestions := h.svc.Suggestions(r.Context(), q.Get("session_id"), q.Get("team"), count)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
	})
}

// HandleStats handles GET /v1/stats
func (h *ChatHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		QueryCache:  h.queryCache.Stats(),
		ResultCache: h.resultCache.Stats(),
		Sessions:    h.registry.Count(),
		Performance: h.monitor.Summary(),
		Window:      h.monitor.RecentWindow(5 * time.Minute),
		Alerts: h.monitor.CheckAlerts(monitor.Thresholds{
			MaxResponseTime: time.Duration(h.monitorCfg.MaxResponseSec * float64(time.Second)),
			MaxErrorRate:    h.monitorCfg.MaxErrorRate,
			MinCacheHitRate: h.monitorCfg.MinCacheHitRate,
		}),
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleSession handles GET /v1/sessions/{id}
func (h *ChatHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	mem, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"stats":      mem.Stats(),
		"history":    mem.History(),
	})
}

// RegisterRoutes registers chat routes with the given mux.
// Note: This uses Go 1.22+ ServeMux patterns.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/chat", h.HandleChat)
	mux.HandleFunc("POST /v1/feedback", h.HandleFeedback)
	mux.HandleFunc("GET /v1/suggestions", h.HandleSuggestions)
	mux.HandleFunc("GET /v1/stats", h.HandleStats)
	mux.HandleFunc("GET /v1/sessions/{id}", h.HandleSession)
}
