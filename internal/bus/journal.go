package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raidstats/raid-chat/internal/pkg/logger"
)

// JournaledEvent is the on-disk form of a published event.
type JournaledEvent struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal appends published events to a JSON-lines file for debugging
// and replay.
type Journal struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	enabled bool
}

// NewJournal opens (or creates) the journal file at path. An empty
// path returns a disabled journal that discards events.
func NewJournal(path string) (*Journal, error) {
	j := &Journal{}
	if path == "" {
		return j, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	j.file = file
	j.encoder = json.NewEncoder(file)
	j.enabled = true
	return j, nil
}

// Log appends an event. Disabled journals are a no-op.
func (j *Journal) Log(topic string, event Event) error {
	if !j.enabled {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.encoder.Encode(JournaledEvent{
		Event:     event,
		Topic:     topic,
		Timestamp: time.Now(),
	})
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// JournaledBus wraps a Bus and records every published event to a
// Journal before delegating. Journal failures are logged, never
// propagated.
type JournaledBus struct {
	inner   Bus
	journal *Journal
	log     *logger.Logger
}

// NewJournaledBus creates a journaling decorator around inner.
func NewJournaledBus(inner Bus, journal *Journal, log *logger.Logger) *JournaledBus {
	if log == nil {
		log = logger.Default()
	}
	return &JournaledBus{inner: inner, journal: journal, log: log}
}

// Publish journals the event and delegates to the inner bus.
func (b *JournaledBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.journal.Log(topic, event); err != nil {
		b.log.Warn("failed to journal event", "topic", topic, "error", err.Error())
	}
	return b.inner.Publish(ctx, topic, event)
}

// Subscribe delegates to the inner bus.
func (b *JournaledBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the journal and the inner bus.
func (b *JournaledBus) Close() error {
	journalErr := b.journal.Close()
	if err := b.inner.Close(); err != nil {
		return err
	}
	return journalErr
}
