// Package main provides the raid-chat server binary.
// The server exposes an HTTP API for conversational raid analytics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
	"github.com/raidstats/raid-chat/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "raid-chat-server",
		Short: "Raid Chat Server - conversational kabaddi analytics API",
		Long: `Raid Chat Server answers natural-language questions about raid-by-raid
kabaddi statistics over HTTP.

The server exposes:
  - POST /v1/chat         ask a question
  - GET  /v1/suggestions  suggested follow-up questions
  - POST /v1/feedback     attach feedback to the last answer
  - GET  /v1/stats        cache and pipeline statistics

Examples:
  raid-chat-server                      # Start with defaults
  raid-chat-server --port 9090          # Custom HTTP port
  raid-chat-server -c config.yaml       # Load a config file`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().String("db", "", "raid database path (overrides config)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("raid-chat-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	dbPath, _ := cmd.Flags().GetString("db")

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override from flags
	if cmd.Flags().Changed("port") {
		appCfg.Port = port
	}
	if cmd.Flags().Changed("host") {
		appCfg.Host = host
	}
	if dbPath != "" {
		appCfg.Database.Path = dbPath
	}

	logLevel := appCfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, appCfg.Log.Format)

	log.Info("Starting Raid Chat Server",
		"version", version,
		"host", appCfg.Host,
		"port", appCfg.Port,
		"database", appCfg.Database.Path,
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = appCfg.Host
	srvCfg.Port = appCfg.Port
	srvCfg.Version = version

	srv, err := server.New(srvCfg, *appCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Info("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}
