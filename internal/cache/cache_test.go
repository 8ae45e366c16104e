package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raidstats/raid-chat/internal/pkg/hash"
)

func newTestStore(maxSize int) *Store {
	return NewStore(Options{
		Name:        "test",
		MaxSize:     maxSize,
		StaleAfter:  30 * time.Minute,
		Compression: true,
	})
}

func TestStore_SetGet(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	s.Set(ctx, "who won the most raids", "Pardeep Narwal")

	got, ok := s.Get(ctx, "who won the most raids")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "Pardeep Narwal" {
		t.Errorf("expected %q, got %q", "Pardeep Narwal", got)
	}
}

func TestStore_Miss(t *testing.T) {
	s := newTestStore(10)

	if _, ok := s.Get(context.Background(), "never stored"); ok {
		t.Error("expected cache miss")
	}

	stats := s.Stats()
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestStore_NormalizedKeys(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	s.Set(ctx, "How many tackles did Bengal Warriors make?", "412")

	variants := []string{
		"how many tackles did bengal warriors make?",
		"  How many tackles did Bengal Warriors make?  ",
		"HOW MANY TACKLES DID BENGAL WARRIORS MAKE?",
	}
	for _, v := range variants {
		got, ok := s.Get(ctx, v)
		if !ok {
			t.Errorf("variant %q: expected hit", v)
			continue
		}
		if got != "412" {
			t.Errorf("variant %q: expected %q, got %q", v, "412", got)
		}
	}
}

func TestStore_Overwrite(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	s.Set(ctx, "question", "first")
	s.Set(ctx, "question", "second")

	got, _ := s.Get(ctx, "question")
	if got != "second" {
		t.Errorf("expected overwritten value %q, got %q", "second", got)
	}
	if stats := s.Stats(); stats.Size != 1 {
		t.Errorf("expected size 1 after overwrite, got %d", stats.Size)
	}
}

func TestStore_EvictionLRU(t *testing.T) {
	s := newTestStore(3)
	ctx := context.Background()

	s.Set(ctx, "q1", "v1")
	s.Set(ctx, "q2", "v2")
	s.Set(ctx, "q3", "v3")

	// Touch q1 so q2 becomes the least recently used.
	if _, ok := s.Get(ctx, "q1"); !ok {
		t.Fatal("expected q1 hit")
	}

	s.Set(ctx, "q4", "v4")

	if _, ok := s.Get(ctx, "q2"); ok {
		t.Error("expected q2 to be evicted")
	}
	for _, q := range []string{"q1", "q3", "q4"} {
		if _, ok := s.Get(ctx, q); !ok {
			t.Errorf("expected %s to survive eviction", q)
		}
	}
}

func TestStore_CompressionRoundTrip(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	// Large enough to cross the compression threshold.
	large := strings.Repeat("raid points | tackle points | total\n", 100)
	s.Set(ctx, "full season table", large)

	got, ok := s.Get(ctx, "full season table")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != large {
		t.Error("compressed value did not round-trip")
	}

	stats := s.Stats()
	if stats.MemoryBytes >= int64(len(large)) {
		t.Errorf("expected compressed storage below %d bytes, got %d", len(large), stats.MemoryBytes)
	}
}

func TestStore_CompressionDisabled(t *testing.T) {
	s := NewStore(Options{Name: "test", MaxSize: 10, Compression: false})
	ctx := context.Background()

	large := strings.Repeat("x", 1000)
	s.Set(ctx, "q", large)

	got, ok := s.Get(ctx, "q")
	if !ok || got != large {
		t.Error("expected uncompressed value to round-trip")
	}
	if stats := s.Stats(); stats.MemoryBytes != int64(len(large)) {
		t.Errorf("expected %d bytes stored, got %d", len(large), stats.MemoryBytes)
	}
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	s.Set(ctx, "q", strings.Repeat("y", 1000))

	// Corrupt the stored bytes behind the cache's back.
	s.mu.Lock()
	for _, e := range s.entries {
		e.data = []byte("not gzip")
	}
	s.mu.Unlock()

	if _, ok := s.Get(ctx, "q"); ok {
		t.Error("expected corrupt entry to read as a miss")
	}
	if stats := s.Stats(); stats.Size != 0 {
		t.Errorf("expected corrupt entry to be dropped, size = %d", stats.Size)
	}
}

func TestStore_MaintainStaleness(t *testing.T) {
	s := NewStore(Options{Name: "test", MaxSize: 10, StaleAfter: 30 * time.Minute})
	ctx := context.Background()

	s.Set(ctx, "old", "v")
	s.Set(ctx, "fresh", "v")

	s.mu.Lock()
	for key, e := range s.entries {
		if key == hash.QuestionKey("old") {
			e.lastAccess = time.Now().Add(-time.Hour)
		}
	}
	s.mu.Unlock()

	s.Maintain()

	if _, ok := s.Get(ctx, "old"); ok {
		t.Error("expected stale entry to be swept")
	}
	if _, ok := s.Get(ctx, "fresh"); !ok {
		t.Error("expected fresh entry to survive")
	}
}

func TestStore_MaintainMemoryShrink(t *testing.T) {
	s := NewStore(Options{
		Name:      "test",
		MaxSize:   100,
		MaxMemory: 2000,
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.Set(ctx, fmt.Sprintf("q%d", i), strings.Repeat("z", 500))
	}

	s.Maintain()

	stats := s.Stats()
	if stats.MemoryBytes > 1600 {
		t.Errorf("expected memory shrunk to at most 80%% of cap, got %d bytes", stats.MemoryBytes)
	}
	if stats.Size == 0 {
		t.Error("expected some entries to survive the shrink")
	}
	// Oldest entries go first.
	if _, ok := s.Get(ctx, "q9"); !ok {
		t.Error("expected most recent entry to survive")
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	s.Set(ctx, "q1", "v1")
	s.Get(ctx, "q1")
	s.Get(ctx, "q1")
	s.Get(ctx, "missing")

	stats := s.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if want := 2.0 / 3.0; stats.HitRate < want-0.01 || stats.HitRate > want+0.01 {
		t.Errorf("expected hit rate ~%.2f, got %.2f", want, stats.HitRate)
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(10)
	ctx := context.Background()

	s.Set(ctx, "q1", "v1")
	s.Set(ctx, "q2", "v2")
	s.Clear()

	if stats := s.Stats(); stats.Size != 0 || stats.MemoryBytes != 0 {
		t.Errorf("expected empty cache after clear, size=%d mem=%d", stats.Size, stats.MemoryBytes)
	}
}

func TestStore_Concurrency(t *testing.T) {
	s := newTestStore(50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q := fmt.Sprintf("q%d", (n+j)%60)
				s.Set(ctx, q, "v")
				s.Get(ctx, q)
			}
		}(i)
	}
	wg.Wait()

	if stats := s.Stats(); stats.Size > 50 {
		t.Errorf("expected at most 50 entries, got %d", stats.Size)
	}
}

func TestStore_MetricsHooks(t *testing.T) {
	s := newTestStore(10)
	m := &fakeMetrics{}
	s.SetMetrics(m)
	ctx := context.Background()

	s.Set(ctx, "q", "v")
	s.Get(ctx, "q")
	s.Get(ctx, "missing")

	if m.hits != 1 || m.misses != 1 {
		t.Errorf("expected 1 hit and 1 miss recorded, got %d/%d", m.hits, m.misses)
	}
	if m.lastSize != 1 {
		t.Errorf("expected size 1 reported, got %d", m.lastSize)
	}
}

type fakeMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	lastSize int
}

func (f *fakeMetrics) RecordCacheHit(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits++
}

func (f *fakeMetrics) RecordCacheMiss(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses++
}

func (f *fakeMetrics) UpdateCacheSize(_ string, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSize = size
}
