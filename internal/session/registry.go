package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
)

// Registry is the single point of lookup and creation for session
// memories. Lookups under concurrent calls with the same unseen id
// converge on exactly one Memory.
//
// Sessions idle past the configured TTL are dropped by the sweeper, and
// the registry never holds more than the configured maximum; when the
// cap is exceeded the longest-idle sessions go first.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*tracked
	maxTurns int
	maxCount int
	idleTTL  time.Duration
	log      *logger.Logger
}

type tracked struct {
	mem      *Memory
	lastSeen time.Time
}

// NewRegistry creates a Registry from configuration.
func NewRegistry(cfg config.SessionConfig, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	return &Registry{
		sessions: make(map[string]*tracked),
		maxTurns: cfg.MaxTurns,
		maxCount: cfg.MaxSessions,
		idleTTL:  time.Duration(cfg.IdleTTLMin) * time.Minute,
		log:      log,
	}
}

// GetOrCreate returns the memory for the given session id, creating it
// if absent.
func (r *Registry) GetOrCreate(sessionID string) *Memory {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.sessions[sessionID]; ok {
		t.lastSeen = time.Now()
		return t.mem
	}

	mem := NewMemory(r.maxTurns)
	r.sessions[sessionID] = &tracked{mem: mem, lastSeen: time.Now()}

	if r.maxCount > 0 && len(r.sessions) > r.maxCount {
		r.evictIdleLocked(len(r.sessions) - r.maxCount)
	}
	return mem
}

// Get returns the memory for the given session id without creating one.
func (r *Registry) Get(sessionID string) (*Memory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	t.lastSeen = time.Now()
	return t.mem, true
}

// Count returns the number of tracked sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle past the TTL. Returns the number removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := time.Now().Add(-r.idleTTL)
	removed := 0
	for id, t := range r.sessions {
		if t.lastSeen.Before(threshold) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until the context is
// cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					r.log.Debug("swept idle sessions", "removed", n)
				}
			}
		}
	}()
}

// evictIdleLocked removes the n longest-idle sessions. Caller holds the
// lock.
func (r *Registry) evictIdleLocked(n int) {
	type candidate struct {
		id       string
		lastSeen time.Time
	}
	candidates := make([]candidate, 0, len(r.sessions))
	for id, t := range r.sessions {
		candidates = append(candidates, candidate{id, t.lastSeen})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastSeen.Before(candidates[j].lastSeen)
	})
	for i := 0; i < n && i < len(candidates); i++ {
		delete(r.sessions, candidates[i].id)
	}
}
