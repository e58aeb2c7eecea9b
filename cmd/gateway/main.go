// Smart Assistant offline edge gateway.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/smart-assistant/gateway/internal/api"
	"github.com/smart-assistant/gateway/internal/cache"
	"github.com/smart-assistant/gateway/internal/config"
	"github.com/smart-assistant/gateway/internal/identity"
	"github.com/smart-assistant/gateway/internal/middleware"
	"github.com/smart-assistant/gateway/internal/notify"
	"github.com/smart-assistant/gateway/internal/store"
	"github.com/smart-assistant/gateway/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	upstream, err := cfg.Upstream()
	if err != nil {
		slog.Error("Failed to parse upstream origin", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting gateway", "port", cfg.Port, "upstream", upstream.String(), "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath, cfg.ChatHistoryLimit)
	if err != nil {
		slog.Error("Failed to initialize local store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close local store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Local store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Local store ready", "path", cfg.DBPath, "history_limit", cfg.ChatHistoryLimit)

	responseCache, err := cache.Open(cfg.CacheDir, cfg.CachePrefix)
	if err != nil {
		slog.Error("Failed to open response cache", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := responseCache.Close(); closeErr != nil {
			slog.Error("Failed to close response cache", "error", closeErr)
		}
	}()

	cacheManager := cache.NewManager(responseCache, upstream, cfg.PrecacheAssets, cfg.BypassMarkers, web.Fallback())

	// Install and activate mirror the worker lifecycle: a failed install
	// leaves every request on the network path until the next start, it
	// does not stop the gateway.
	if err := cacheManager.Install(context.Background()); err != nil {
		slog.Warn("Cache install failed, serving without precached assets", "error", err)
	}
	if err := cacheManager.Activate(); err != nil {
		slog.Warn("Cache activation cleanup failed", "error", err)
	}

	// Initialize handlers.
	localHandler := api.NewHandler(repo)
	backendProxy := api.NewBackendProxy(upstream)
	notifyRelay := notify.NewRelay(upstream)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware())

	// Local record API.
	localHandler.RegisterRoutes(r)

	// Backend routes always hit the network.
	r.Handle("/api/*", backendProxy)
	r.Handle("/ws/notifications", notifyRelay)

	// Everything else goes through the offline cache.
	r.Handle("/*", cacheManager)

	// Create server.
	// Note: WebSocket relays are long-lived, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheManager.StartSweeper(ctx, cfg.SweepInterval)

	// Start server.
	go func() {
		slog.Info("Gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Gateway stopped successfully")
}
