package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repoedit/internal/apply"
	"repoedit/internal/assistant"
	"repoedit/internal/config"
	"repoedit/internal/session"
	"repoedit/internal/slogutil"
	"repoedit/internal/storage"
	"repoedit/internal/store"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

// app holds what every command builds from the loaded configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// newApp loads and validates configuration and sets up logging. Commands
// other than serve log at warn unless -v is given.
func newApp(server bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := slogutil.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	switch {
	case quiet:
		opts.Override = slogutil.LevelFromVerbosity(0, true)
	case verbosity == 1:
		opts.Level = "info"
	case verbosity > 1:
		opts.Override = slogutil.LevelFromVerbosity(verbosity, false)
	case !server:
		opts.Override = slogutil.LevelFromVerbosity(0, false)
	}

	logger, closer, err := slogutil.Setup(os.Stderr, opts)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, closers: []io.Closer{closer}}, nil
}

// Close releases the journal database and log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: close failed: %v\n", err)
		}
	}
}

// store builds the GitHub content store.
func (a *app) store() (store.Store, error) {
	gh := a.cfg.GitHub
	if gh.Owner == "" || gh.Repo == "" {
		return nil, fmt.Errorf("no repository configured: set github.owner and github.repo (or GITHUB_REPO_OWNER and GITHUB_REPO_NAME)")
	}
	if gh.Token == "" {
		a.logger.Warn("No GitHub token configured; falling back to gh CLI credentials", "owner", gh.Owner, "repo", gh.Repo)
	}
	return store.NewGitHub(store.GitHubConfig{
		Host:    gh.Host,
		Owner:   gh.Owner,
		Repo:    gh.Repo,
		Branch:  gh.Branch,
		Token:   gh.Token,
		Timeout: time.Duration(gh.TimeoutSeconds) * time.Second,
	}, a.logger)
}

// journal opens the apply journal, or returns nil when it is disabled.
func (a *app) journal() (*storage.Journal, error) {
	if !a.cfg.Journal.Enabled {
		return nil, nil
	}
	db, err := storage.Open(a.cfg.Journal.Path, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	a.closers = append(a.closers, db)
	return storage.NewJournal(db), nil
}

// orchestrator wires the reconciler and journal over st.
func (a *app) orchestrator(st store.Store) (*apply.Orchestrator, *storage.Journal, error) {
	journal, err := a.journal()
	if err != nil {
		return nil, nil, err
	}

	rec := apply.NewReconciler(st, a.logger)
	rec.RetryOnConflict = a.cfg.Apply.RetryOnConflict

	// A nil *storage.Journal must not become a non-nil interface.
	var j apply.Journal
	if journal != nil {
		j = journal
	}
	return apply.NewOrchestrator(rec, j, a.logger), journal, nil
}

// provider builds the configured AI provider. It returns nil when the
// provider is "none".
func (a *app) provider(ctx context.Context) (assistant.Provider, error) {
	ai := a.cfg.AI

	prompt := assistant.DefaultPromptConfig()
	if ai.PromptFile != "" {
		p, err := assistant.LoadPromptConfig(ai.PromptFile)
		if err != nil {
			return nil, err
		}
		prompt = p
	}

	switch ai.Provider {
	case "none":
		return nil, nil
	case "gemini":
		g, err := assistant.NewGemini(ctx, ai.GeminiAPIKey, ai.Model, prompt, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g)
		return g, nil
	default:
		cfg := assistant.OpenAICompatConfig{
			Name:    ai.Provider,
			BaseURL: ai.BaseURL,
			APIKey:  ai.APIKey,
			Model:   ai.Model,
			Timeout: time.Duration(ai.TimeoutSeconds) * time.Second,
		}
		if ai.Provider == "openai" {
			if cfg.BaseURL == "" {
				cfg.BaseURL = defaultOpenAIURL
			}
			if cfg.Model == "" {
				cfg.Model = defaultOpenAIModel
			}
		}
		if cfg.APIKey == "" {
			a.logger.Warn("No AI API key configured; chat requests will fail", "provider", ai.Provider)
		}
		return assistant.NewOpenAICompat(cfg, prompt, a.logger), nil
	}
}

// sessions builds the chat session manager.
func (a *app) sessions() *session.Manager {
	return session.NewManager(a.cfg.Sessions.MaxSessions)
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
