package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("RAID_PORT", "9090")
	os.Setenv("RAID_LOG_LEVEL", "debug")
	os.Setenv("RAID_CACHE_SIZE", "42")
	defer func() {
		os.Unsetenv("RAID_PORT")
		os.Unsetenv("RAID_LOG_LEVEL")
		os.Unsetenv("RAID_CACHE_SIZE")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Cache.Size != 42 {
		t.Errorf("Cache.Size = %d, want 42", cfg.Cache.Size)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
cache:
  type: memory
  size: 50
session:
  max_turns: 5
chat:
  max_concurrent: 4
  preload:
    - "Show me the top raiders with most successful raids"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}
	if cfg.Cache.Size != 50 {
		t.Errorf("Cache.Size = %d, want 50", cfg.Cache.Size)
	}
	if cfg.Session.MaxTurns != 5 {
		t.Errorf("Session.MaxTurns = %d, want 5", cfg.Session.MaxTurns)
	}
	if len(cfg.Chat.Preload) != 1 {
		t.Errorf("Chat.Preload len = %d, want 1", len(cfg.Chat.Preload))
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Cache.Type != "memory" {
		t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
	}
	if cfg.Session.MaxTurns != 10 {
		t.Errorf("Session.MaxTurns = %d, want 10", cfg.Session.MaxTurns)
	}
	if cfg.Chat.MaxConcurrent != 10 {
		t.Errorf("Chat.MaxConcurrent = %d, want 10", cfg.Chat.MaxConcurrent)
	}
	if cfg.Monitor.MaxMetrics != 1000 {
		t.Errorf("Monitor.MaxMetrics = %d, want 1000", cfg.Monitor.MaxMetrics)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"bad cache type", func(c *Config) { c.Cache.Type = "bogus" }, true},
		{"bad cache size", func(c *Config) { c.Cache.Size = 0 }, true},
		{"bad max turns", func(c *Config) { c.Session.MaxTurns = 0 }, true},
		{"bad bus type", func(c *Config) { c.Bus.Type = "rabbitmq" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKafkaBrokerList(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"localhost:9092", 1},
		{"a:9092, b:9092,c:9092", 3},
		{" , ", 0},
	}

	for _, tt := range tests {
		bc := BusConfig{KafkaBrokers: tt.input}
		if got := bc.KafkaBrokerList(); len(got) != tt.want {
			t.Errorf("KafkaBrokerList(%q) len = %d, want %d", tt.input, len(got), tt.want)
		}
	}
}
