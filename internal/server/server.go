// Package server provides the HTTP server that wires all services together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/raidstats/raid-chat/internal/bus"
	"github.com/raidstats/raid-chat/internal/cache"
	"github.com/raidstats/raid-chat/internal/chat"
	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/llm"
	"github.com/raidstats/raid-chat/internal/monitor"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
	"github.com/raidstats/raid-chat/internal/pkg/middleware"
	"github.com/raidstats/raid-chat/internal/pkg/security"
	"github.com/raidstats/raid-chat/internal/session"
	"github.com/raidstats/raid-chat/internal/statdb"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg        Config
	appCfg     config.Config
	log        *logger.Logger
	httpServer *http.Server

	// Services
	events      bus.Bus
	db          *statdb.DB
	model       *llm.Client
	queryCache  cache.Cache
	resultCache cache.Cache
	registry    *session.Registry
	monitor     *monitor.Monitor
	chat        *chat.Service

	// Handlers
	chatHandler   *ChatHandler
	healthHandler *HealthHandler

	// Lifecycle for background goroutines.
	cancelBackground context.CancelFunc

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates a new server with all dependencies.
func New(cfg Config, appCfg config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}

	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		log:    log,
	}

	// Event bus (in-memory for the monolith, Kafka when configured)
	events, err := bus.New(appCfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	s.events = events

	// Raid statistics database
	db, err := statdb.Open(appCfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	// Model client for query generation and answer formatting
	model, err := llm.NewClient(appCfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	s.model = model

	// Performance monitor, shared by caches and the chat pipeline
	s.monitor = monitor.New(appCfg.Monitor.MaxMetrics)

	// Query and result caches
	s.queryCache, err = cache.New("query", appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	s.resultCache, err = cache.New("result", appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	attachMetrics(s.queryCache, s.monitor)
	attachMetrics(s.resultCache, s.monitor)

	// Conversation session registry
	s.registry = session.NewRegistry(appCfg.Session, log)

	// Table schema for generation prompts
	schema, err := db.SchemaDescription(context.Background())
	if err != nil {
		log.Warn("Schema description unavailable, prompts will omit it", "error", err)
	}

	// Chat pipeline
	s.chat = chat.NewService(chat.Options{
		Log:         log,
		QueryCache:  s.queryCache,
		ResultCache: s.resultCache,
		Registry:    s.registry,
		Monitor:     s.monitor,
		Events:      s.events,
		Generator:   model,
		Executor:    db,
		Formatter:   model,
		Suggester:   chat.NewSuggester(model),
		Schema:      schema,
		Config:      appCfg.Chat,
	})

	// Handlers
	s.chatHandler = NewChatHandler(s.chat, s.queryCache, s.resultCache, s.registry, s.monitor, appCfg.Monitor)
	s.healthHandler = NewHealthHandler(s.db, s.registry, s.monitor, cfg.Version)

	return s, nil
}

// attachMetrics wires the monitor into cache implementations that report
// hit and size counters. The Redis-backed cache tracks its own stats.
func attachMetrics(c cache.Cache, m cache.Metrics) {
	if s, ok := c.(interface{ SetMetrics(cache.Metrics) }); ok {
		s.SetMetrics(m)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelBackground = cancel
	s.mu.Unlock()

	// Background maintenance: stale-entry sweeps and idle session eviction.
	maintenance := time.Duration(s.appCfg.Cache.MaintenanceSec) * time.Second
	startMaintenance(ctx, s.queryCache, maintenance)
	startMaintenance(ctx, s.resultCache, maintenance)
	s.registry.StartSweeper(ctx, 15*time.Minute)

	// Warm the caches with common questions before accepting traffic.
	if len(s.appCfg.Chat.Preload) > 0 {
		s.log.Info("Preloading caches", "questions", len(s.appCfg.Chat.Preload))
		go s.preload(ctx, s.appCfg.Chat.Preload)
	}

	mux := s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("Starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

func startMaintenance(ctx context.Context, c cache.Cache, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if s, ok := c.(interface {
		StartMaintenance(context.Context, time.Duration)
	}); ok {
		s.StartMaintenance(ctx, interval)
	}
}

// preload runs the configured warm-up questions through the full pipeline
// so their queries and results are cached before user traffic arrives.
func (s *Server) preload(ctx context.Context, questions []string) {
	for _, q := range questions {
		if ctx.Err() != nil {
			return
		}
		resp := s.chat.Ask(ctx, chat.Request{Question: q})
		s.log.Debug("Preloaded question", "question", q, "cache_hit", resp.CacheHit)
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	if s.cancelBackground != nil {
		s.cancelBackground()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	// Close services
	if s.events != nil {
		s.events.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	s.started = false
	s.log.Info("Server stopped")

	return nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	s.healthHandler.RegisterRoutes(mux)
	s.chatHandler.RegisterRoutes(mux)

	var handler http.Handler = mux

	if s.appCfg.Security.RateLimit > 0 {
		rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(s.appCfg.Security.RateLimit),
			Burst:             s.appCfg.Security.RateLimit * 2,
			CleanupInterval:   time.Minute,
		})
		handler = rl.Middleware(handler)
	}

	handler = ResponseWrapperMiddleware(handler)
	handler = CORSMiddleware(handler)

	return wrapWithLogging(handler, s.log)
}

// CORSMiddleware adds CORS headers.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// wrapWithLogging returns a mux with logging middleware.
func wrapWithLogging(handler http.Handler, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		handler.ServeHTTP(wrapped, r)

		log.Debug("HTTP request",
			"method", r.Method,
			"path", security.SanitizeForLog(r.URL.Path),
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
	return mux
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Health returns the server health status.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
