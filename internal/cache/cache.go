// Package cache provides bounded key/value caches for query and result text.
package cache

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/raidstats/raid-chat/internal/pkg/hash"
)

// Metrics is the interface for recording cache metrics.
// This allows the cache to be decoupled from the monitoring package.
type Metrics interface {
	RecordCacheHit(cacheName string)
	RecordCacheMiss(cacheName string)
	UpdateCacheSize(cacheName string, size int)
}

// Stats holds cache statistics.
type Stats struct {
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	Hits        int64   `json:"hit_count"`
	Misses      int64   `json:"miss_count"`
	HitRate     float64 `json:"hit_rate"`
	MemoryBytes int64   `json:"memory_bytes"`
	Compression bool    `json:"compression_enabled"`
}

// Cache maps input text to previously computed string values.
// Implementations must be safe for concurrent use and must never
// surface internal failures to callers: a failed lookup is a miss.
type Cache interface {
	// Get returns the cached value for the input text, if present.
	Get(ctx context.Context, text string) (string, bool)

	// Set stores a value for the input text, evicting the least
	// recently used entry if the cache is full.
	Set(ctx context.Context, text, value string)

	// Stats returns current cache statistics.
	Stats() Stats

	// Maintain drops stale entries and shrinks memory usage toward
	// the configured soft cap.
	Maintain()

	// Clear removes all entries.
	Clear()
}

// compressMin is the minimum value size, in bytes, worth compressing.
// Gzip overhead dominates below this.
const compressMin = 256

type entry struct {
	data       []byte
	compressed bool
	lastAccess time.Time
}

// Store is an in-memory LRU cache with optional transparent compression.
// Keys are derived from normalized input text, so trivial case and
// whitespace variants of the same question hit the same entry.
type Store struct {
	mu          sync.Mutex
	name        string
	entries     map[string]*entry
	order       []string // LRU order, oldest first
	maxSize     int
	staleAfter  time.Duration
	maxMemory   int64
	memoryUsed  int64
	compression bool
	hits        int64
	misses      int64
	metrics     Metrics
}

// Options configures a Store.
type Options struct {
	// Name identifies the cache in metrics (e.g. "query", "result").
	Name string

	// MaxSize is the maximum number of entries. Defaults to 300.
	MaxSize int

	// StaleAfter is the age beyond which Maintain drops an entry.
	// Zero disables the staleness sweep.
	StaleAfter time.Duration

	// MaxMemory is the soft memory cap in bytes enforced by Maintain.
	// Zero disables the memory sweep.
	MaxMemory int64

	// Compression enables transparent gzip compression of stored values.
	Compression bool
}

// NewStore creates a new in-memory cache store.
func NewStore(opts Options) *Store {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 300
	}

	return &Store{
		name:        opts.Name,
		entries:     make(map[string]*entry),
		order:       make([]string, 0, opts.MaxSize),
		maxSize:     opts.MaxSize,
		staleAfter:  opts.StaleAfter,
		maxMemory:   opts.MaxMemory,
		compression: opts.Compression,
	}
}

// SetMetrics sets the metrics recorder for this cache.
func (s *Store) SetMetrics(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Get returns the cached value for the input text. A hit refreshes the
// entry's recency; a corrupt stored value is dropped and reported as a miss.
func (s *Store) Get(_ context.Context, text string) (string, bool) {
	key := hash.QuestionKey(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(s.name)
		}
		return "", false
	}

	value, err := decode(e)
	if err != nil {
		// Corrupt entry. Drop it and treat as a miss.
		s.removeLocked(key)
		s.misses++
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(s.name)
		}
		return "", false
	}

	e.lastAccess = time.Now()
	s.moveToEndLocked(key)
	s.hits++
	if s.metrics != nil {
		s.metrics.RecordCacheHit(s.name)
	}
	return value, true
}

// Set stores a value for the input text, overwriting any existing entry
// for the same derived key. If the cache is full, the least recently
// used entry is evicted first.
func (s *Store) Set(_ context.Context, text, value string) {
	key := hash.QuestionKey(text)
	data, compressed := encode(value, s.compression)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok {
		s.memoryUsed -= int64(len(existing.data))
		existing.data = data
		existing.compressed = compressed
		existing.lastAccess = time.Now()
		s.memoryUsed += int64(len(data))
		s.moveToEndLocked(key)
		return
	}

	for len(s.entries) >= s.maxSize && len(s.order) > 0 {
		s.removeLocked(s.order[0])
	}

	s.entries[key] = &entry{
		data:       data,
		compressed: compressed,
		lastAccess: time.Now(),
	}
	s.order = append(s.order, key)
	s.memoryUsed += int64(len(data))

	if s.metrics != nil {
		s.metrics.UpdateCacheSize(s.name, len(s.entries))
	}
}

// Stats returns current cache statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	rate := 0.0
	if total > 0 {
		rate = float64(s.hits) / float64(total)
	}

	return Stats{
		Size:        len(s.entries),
		MaxSize:     s.maxSize,
		Hits:        s.hits,
		Misses:      s.misses,
		HitRate:     rate,
		MemoryBytes: s.memoryUsed,
		Compression: s.compression,
	}
}

// Maintain drops entries whose age exceeds the staleness threshold, then
// evicts least recently used entries until memory usage is below 80% of
// the soft cap.
func (s *Store) Maintain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staleAfter > 0 {
		threshold := time.Now().Add(-s.staleAfter)
		for _, key := range append([]string(nil), s.order...) {
			if e, ok := s.entries[key]; ok && e.lastAccess.Before(threshold) {
				s.removeLocked(key)
			}
		}
	}

	if s.maxMemory > 0 && s.memoryUsed > s.maxMemory {
		target := int64(float64(s.maxMemory) * 0.8)
		for s.memoryUsed > target && len(s.order) > 0 {
			s.removeLocked(s.order[0])
		}
	}

	if s.metrics != nil {
		s.metrics.UpdateCacheSize(s.name, len(s.entries))
	}
}

// StartMaintenance runs Maintain on the given interval until the context
// is cancelled. It is the host's responsibility to schedule this; the
// request path never triggers maintenance.
func (s *Store) StartMaintenance(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Maintain()
			}
		}
	}()
}

// Clear removes all entries and resets counters.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.order = s.order[:0]
	s.memoryUsed = 0
	s.hits = 0
	s.misses = 0

	if s.metrics != nil {
		s.metrics.UpdateCacheSize(s.name, 0)
	}
}

// removeLocked deletes a key from the map and order slice (must hold lock).
func (s *Store) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	s.memoryUsed -= int64(len(e.data))
	delete(s.entries, key)

	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// moveToEndLocked moves a key to the end of the LRU order (must hold lock).
func (s *Store) moveToEndLocked(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			s.order = append(s.order, key)
			return
		}
	}
}

// encode serializes a value for storage, compressing it when compression
// is enabled and the value is large enough to benefit.
func encode(value string, compress bool) ([]byte, bool) {
	if !compress || len(value) < compressMin {
		return []byte(value), false
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(value)); err != nil {
		w.Close()
		return []byte(value), false
	}
	if err := w.Close(); err != nil {
		return []byte(value), false
	}
	return buf.Bytes(), true
}

// decode recovers the stored value, decompressing if needed.
func decode(e *entry) (string, error) {
	if !e.compressed {
		return string(e.data), nil
	}

	r, err := gzip.NewReader(bytes.NewReader(e.data))
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
