package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/raidstats/raid-chat/internal/config"
)

// New creates a Cache instance based on the configuration.
// name identifies the cache in metrics and Redis key prefixes.
func New(name string, cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewStore(Options{
			Name:        name,
			MaxSize:     cfg.Size,
			StaleAfter:  time.Duration(cfg.StaleAfterSec) * time.Second,
			MaxMemory:   int64(cfg.MaxMemoryMB) * 1024 * 1024,
			Compression: cfg.Compression,
		}), nil

	case "redis":
		return NewRedisStore(name, cfg.RedisURL, time.Duration(cfg.RedisTTLSeconds)*time.Second)

	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
