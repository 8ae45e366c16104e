// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"RAID_HOST" yaml:"host"`
	Port int    `envconfig:"RAID_PORT" yaml:"port"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Session configuration
	Session SessionConfig `yaml:"session"`

	// Monitor configuration
	Monitor MonitorConfig `yaml:"monitor"`

	// Chat pipeline configuration
	Chat ChatConfig `yaml:"chat"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// CacheConfig holds query/result cache settings.
type CacheConfig struct {
	Type            string `envconfig:"RAID_CACHE_TYPE" yaml:"type"`
	Size            int    `envconfig:"RAID_CACHE_SIZE" yaml:"size"`
	StaleAfterSec   int    `envconfig:"RAID_CACHE_STALE_AFTER" yaml:"stale_after_seconds"`
	MaintenanceSec  int    `envconfig:"RAID_CACHE_MAINTENANCE_INTERVAL" yaml:"maintenance_seconds"`
	Compression     bool   `envconfig:"RAID_CACHE_COMPRESSION" yaml:"compression"`
	MaxMemoryMB     int    `envconfig:"RAID_CACHE_MAX_MEMORY_MB" yaml:"max_memory_mb"`
	RedisURL        string `envconfig:"RAID_REDIS_URL" yaml:"redis_url"`
	RedisTTLSeconds int    `envconfig:"RAID_REDIS_TTL" yaml:"redis_ttl_seconds"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	MaxTurns    int `envconfig:"RAID_SESSION_MAX_TURNS" yaml:"max_turns"`
	MaxSessions int `envconfig:"RAID_SESSION_MAX_SESSIONS" yaml:"max_sessions"`
	IdleTTLMin  int `envconfig:"RAID_SESSION_IDLE_TTL_MIN" yaml:"idle_ttl_minutes"`
}

// MonitorConfig holds performance monitor settings.
type MonitorConfig struct {
	MaxMetrics      int     `envconfig:"RAID_MONITOR_MAX_METRICS" yaml:"max_metrics"`
	MaxResponseSec  float64 `envconfig:"RAID_MONITOR_MAX_RESPONSE_SEC" yaml:"max_response_seconds"`
	MaxErrorRate    float64 `envconfig:"RAID_MONITOR_MAX_ERROR_RATE" yaml:"max_error_rate"`
	MinCacheHitRate float64 `envconfig:"RAID_MONITOR_MIN_CACHE_HIT_RATE" yaml:"min_cache_hit_rate"`
}

// ChatConfig holds request orchestration settings.
type ChatConfig struct {
	MaxConcurrent int      `envconfig:"RAID_CHAT_MAX_CONCURRENT" yaml:"max_concurrent"`
	ContextTurns  int      `envconfig:"RAID_CHAT_CONTEXT_TURNS" yaml:"context_turns"`
	Preload       []string `yaml:"preload"`
}

// LLMConfig holds text-generation service settings.
type LLMConfig struct {
	APIKey  string `envconfig:"RAID_LLM_API_KEY" yaml:"api_key"`
	BaseURL string `envconfig:"RAID_LLM_BASE_URL" yaml:"base_url"`
	Model   string `envconfig:"RAID_LLM_MODEL" yaml:"model"`
}

// DatabaseConfig holds statistics database settings.
type DatabaseConfig struct {
	Path string `envconfig:"RAID_DB_PATH" yaml:"path"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"RAID_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"RAID_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"RAID_KAFKA_GROUP" yaml:"kafka_group"`
	JournalPath  string `envconfig:"RAID_BUS_JOURNAL" yaml:"journal_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RAID_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RAID_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey      string `envconfig:"RAID_API_KEY" yaml:"api_key"`
	RateLimit   int    `envconfig:"RAID_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
	CORSOrigins string `envconfig:"RAID_CORS_ORIGINS" yaml:"cors_origins"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Cache = CacheConfig{
		Type:            "memory",
		Size:            300,
		StaleAfterSec:   1800,
		MaintenanceSec:  300,
		Compression:     true,
		MaxMemoryMB:     100,
		RedisURL:        "redis://localhost:6379",
		RedisTTLSeconds: 1800,
	}

	cfg.Session = SessionConfig{
		MaxTurns:    10,
		MaxSessions: 10000,
		IdleTTLMin:  240,
	}

	cfg.Monitor = MonitorConfig{
		MaxMetrics:      1000,
		MaxResponseSec:  5.0,
		MaxErrorRate:    0.15,
		MinCacheHitRate: 0.4,
	}

	cfg.Chat = ChatConfig{
		MaxConcurrent: 10,
		ContextTurns:  3,
	}

	cfg.LLM = LLMConfig{
		Model: "gpt-4o-mini",
	}

	cfg.Database = DatabaseConfig{
		Path: "./data/raids.db",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	validCacheTypes := map[string]bool{"memory": true, "redis": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory or redis)", c.Cache.Type))
	}

	if c.Cache.Size < 1 {
		errs = append(errs, "cache size must be positive")
	}

	if c.Session.MaxTurns < 1 {
		errs = append(errs, "session max_turns must be positive")
	}

	if c.Monitor.MaxMetrics < 1 {
		errs = append(errs, "monitor max_metrics must be positive")
	}

	if c.Chat.MaxConcurrent < 1 {
		errs = append(errs, "chat max_concurrent must be positive")
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// KafkaBrokerList returns the configured Kafka brokers as a slice.
func (c *BusConfig) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
