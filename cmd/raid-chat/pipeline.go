package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raidstats/raid-chat/internal/cache"
	"github.com/raidstats/raid-chat/internal/chat"
	"github.com/raidstats/raid-chat/internal/client"
	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/llm"
	"github.com/raidstats/raid-chat/internal/monitor"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
	"github.com/raidstats/raid-chat/internal/session"
	"github.com/raidstats/raid-chat/internal/statdb"
)

// Backend answers questions either through a local pipeline or a remote
// server, depending on the --server flag.
type Backend interface {
	Ask(ctx context.Context, question, sessionID string) (Answer, error)
	Suggest(ctx context.Context, sessionID, team string, count int) ([]string, error)
	Close()
}

// Answer is what a CLI command prints.
type Answer struct {
	Text        string
	Query       string
	Suggestions []string
}

// buildBackend picks the remote client when --server is set, and wires a
// local pipeline otherwise.
func buildBackend(cmd *cobra.Command) (Backend, error) {
	serverURL, _ := cmd.Flags().GetString("server")
	if serverURL != "" {
		cfg := client.DefaultConfig()
		cfg.BaseURL = serverURL
		return &remoteBackend{api: client.New(cfg)}, nil
	}
	return buildPipeline(cmd)
}

// remoteBackend talks to a running raid-chat-server.
type remoteBackend struct {
	api *client.Client
}

func (b *remoteBackend) Ask(ctx context.Context, question, sessionID string) (Answer, error) {
	resp, err := b.api.Ask(ctx, question, sessionID)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: resp.Answer, Query: resp.Query, Suggestions: resp.Suggestions}, nil
}

func (b *remoteBackend) Suggest(ctx context.Context, sessionID, team string, count int) ([]string, error) {
	return b.api.Suggestions(ctx, sessionID, team, count)
}

func (b *remoteBackend) Close() {}

// Pipeline bundles the chat service with the resources it owns so CLI
// commands can tear everything down when they finish.
type Pipeline struct {
	Service *chat.Service

	db *statdb.DB
}

func (p *Pipeline) Ask(ctx context.Context, question, sessionID string) (Answer, error) {
	resp := p.Service.Ask(ctx, chat.Request{Question: question, SessionID: sessionID})
	return Answer{Text: resp.Answer, Query: resp.Query, Suggestions: resp.Suggestions}, nil
}

func (p *Pipeline) Suggest(ctx context.Context, sessionID, team string, count int) ([]string, error) {
	return p.Service.Suggestions(ctx, sessionID, team, count), nil
}

// Close releases the pipeline's resources.
func (p *Pipeline) Close() {
	if p.db != nil {
		p.db.Close()
	}
}

// buildPipeline wires a local chat pipeline from the CLI flags and config
// file. The CLI talks to the model and database directly rather than going
// through a running server.
func buildPipeline(cmd *cobra.Command) (*Pipeline, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	dbPath, _ := cmd.Flags().GetString("db")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	db, err := statdb.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	model, err := llm.NewClient(cfg.LLM)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	queryCache, err := cache.New("query", cfg.Cache)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	resultCache, err := cache.New("result", cfg.Cache)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	schema, err := db.SchemaDescription(context.Background())
	if err != nil {
		log.Warn("Schema description unavailable, prompts will omit it", "error", err)
	}

	svc := chat.NewService(chat.Options{
		Log:         log,
		QueryCache:  queryCache,
		ResultCache: resultCache,
		Registry:    session.NewRegistry(cfg.Session, log),
		Monitor:     monitor.New(cfg.Monitor.MaxMetrics),
		Generator:   model,
		Executor:    db,
		Formatter:   model,
		Suggester:   chat.NewSuggester(model),
		Schema:      schema,
		Config:      cfg.Chat,
	})

	return &Pipeline{Service: svc, db: db}, nil
}
