// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/runeberg/ansuz/internal/api"
	"github.com/runeberg/ansuz/internal/commands"
	"github.com/runeberg/ansuz/internal/index"
	"github.com/runeberg/ansuz/internal/llm"
	"github.com/runeberg/ansuz/internal/mcpserver"
	"github.com/runeberg/ansuz/internal/models"
	"github.com/runeberg/ansuz/internal/promptservice"
	"github.com/runeberg/ansuz/internal/storage"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("default_provider", cfg.Generation.Provider),
		slog.String("default_model", cfg.Generation.Model),
		slog.Int("prompts", len(cfg.Prompts)))

	store, db, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cmds, providers := buildPipeline(cfg, store, db, logger)

	apiRouter := api.NewRouter(svc, cmds, providers, cfg.Auth.AuthEnabled(), cfg.Auth.Token.Value())

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the embed index in step with external edits to the vault.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, cfg.Vault.Path, logger); err != nil {
			logger.Warn("file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the prompt tools over the MCP stdio transport. Logs go to
// stderr because stdout carries the protocol. The stdio server runs until
// stdin closes.
func RunMCP(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, db, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	_, cmds, _ := buildPipeline(cfg, store, db, logger)
	srv := mcpserver.New(store, cmds)

	logger.Info("MCP server starting on stdio",
		slog.String("vault_path", cfg.Vault.Path),
		slog.Int("prompts", len(cfg.Prompts)))

	return srv.ServeStdio()
}

// openVault prepares the vault directory, the storage provider and the
// SQLite index, and runs the initial sync.
func openVault(cfg *Config, logger *slog.Logger) (storage.Provider, *index.DB, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return store, db, nil
}

// buildPipeline wires the provider registry, the prompt service and the
// command registry from configuration.
func buildPipeline(cfg *Config, store storage.Provider, db *index.DB, logger *slog.Logger) (*promptservice.Service, *commands.Registry, *llm.Registry) {
	providers := llm.NewRegistry(cfg.Generation.Provider,
		llm.NewAnthropic(cfg.Providers.Anthropic.APIKey.Value(), cfg.Providers.Anthropic.BaseURL, logger),
		llm.NewOpenAI(cfg.Providers.OpenAI.APIKey.Value(), cfg.Providers.OpenAI.BaseURL, logger),
		llm.NewOpenRouter(cfg.Providers.OpenRouter.APIKey.Value(), cfg.Providers.OpenRouter.BaseURL, logger),
		llm.NewGemini(cfg.Providers.Gemini.APIKey.Value(), cfg.Providers.Gemini.BaseURL, logger),
	)

	defaults := promptservice.Defaults{
		Model:     cfg.Generation.Model,
		MaxTokens: cfg.Generation.MaxTokens,
		Flags:     cfg.Providers.Anthropic.BetaFlags,
	}
	svc := promptservice.NewService(store, db, providers, defaults, logger)

	cmds := commands.NewRegistry()
	for _, pc := range cfg.Prompts {
		def := pc.Definition()
		cmds.Register(def.ID, def.Name, func(ctx context.Context, path string, span *models.Span, obs promptservice.Observer) (*promptservice.RunResult, error) {
			return svc.RunOnNote(ctx, def, path, span, obs)
		})
	}
	logger.Info("Prompt commands registered", slog.Int("count", len(cfg.Prompts)))

	return svc, cmds, providers
}
