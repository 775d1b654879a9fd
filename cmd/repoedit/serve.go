package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"repoedit/internal/api"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the repoedit HTTP API server. The server applies edit batches,
previews them as diffs, browses the repository, and forwards chat messages
to the configured AI provider.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 3000)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default all interfaces)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("port") {
		a.cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		a.cfg.Server.Host = serveHost
	}

	ctx, stop := newContext()
	defer stop()

	st, err := a.store()
	if err != nil {
		return err
	}
	orch, journal, err := a.orchestrator(st)
	if err != nil {
		return err
	}
	provider, err := a.provider(ctx)
	if err != nil {
		a.logger.Warn("AI provider unavailable; chat is disabled", "provider", a.cfg.AI.Provider, "error", err.Error())
		provider = nil
	}

	deps := api.Deps{
		Store:        st,
		Orchestrator: orch,
		Provider:     provider,
		Sessions:     a.sessions(),
		Logger:       a.logger,
	}
	if journal != nil {
		deps.History = journal
	}

	addr := a.cfg.Addr()
	server := api.NewServer(api.ServerConfig{
		Addr:         addr,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeoutSeconds) * time.Second,
		Compress:     a.cfg.Server.Compress,
	}, deps)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting repoedit HTTP API server", "addr", addr,
			"repo", a.cfg.GitHub.Owner+"/"+a.cfg.GitHub.Repo)
		fmt.Printf("repoedit HTTP API server listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("Server error", "error", err.Error())
			return err
		}
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown", "error", err.Error())
			return err
		}
		a.logger.Info("Server stopped gracefully")
	}

	return nil
}
