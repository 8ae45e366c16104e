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

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the raid-chat HTTP server",
		Long: `Start the HTTP API in this process. Equivalent to running the
raid-chat-server binary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")
			dbPath, _ := cmd.Flags().GetString("db")
			port, _ := cmd.Flags().GetInt("port")
			host, _ := cmd.Flags().GetString("host")

			appCfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
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
			return srv.Stop(ctx)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP server host")

	return cmd
}
