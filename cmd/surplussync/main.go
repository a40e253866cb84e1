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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/mhdalton/surplussync/internal/adapter/driven/chromebrowser"
	"github.com/mhdalton/surplussync/internal/adapter/driven/configfile"
	"github.com/mhdalton/surplussync/internal/adapter/driven/ebay"
	"github.com/mhdalton/surplussync/internal/adapter/driven/httpcall"
	"github.com/mhdalton/surplussync/internal/adapter/driven/servicenow"
	sqliteadapter "github.com/mhdalton/surplussync/internal/adapter/driven/sqlite"
	httphandler "github.com/mhdalton/surplussync/internal/adapter/driving/http"
	"github.com/mhdalton/surplussync/internal/application"
	"github.com/mhdalton/surplussync/internal/config"
)

// janitorInterval is how often expired response-cache rows are purged.
const janitorInterval = 7 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"config_path", cfg.ConfigPath,
		"cache_db_path", cfg.CacheDBPath,
		"poll_interval", cfg.PollInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the cache database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.CacheDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("cache database opened", "path", cfg.CacheDBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	cacheRepo := sqliteadapter.NewCacheRepo(db)
	go cacheRepo.Janitor(ctx, janitorInterval)

	configStore := configfile.New(cfg.ConfigPath)
	caller := httpcall.New()
	ebayClient := ebay.NewClient(caller, cacheRepo, cfg.CacheTTL)
	launcher := chromebrowser.New()

	// The ticketing account comes from the shared settings document; a
	// missing or malformed document is fatal at startup.
	settings, err := configStore.Load(ctx)
	if err != nil {
		return err
	}
	ticketing := servicenow.NewClient(caller, settings.ServiceNow)

	// 6. Create application services and start the order poll loop.
	authSvc := application.NewAuthService(configStore, ebayClient, launcher)
	syncSvc := application.NewSyncService(ticketing)
	orderSvc := application.NewOrderService(configStore, ebayClient, syncSvc, cfg.PollInterval)
	go orderSvc.Start(ctx)

	// 7. Create HTTP handler and serve the API.
	apiHandler := httphandler.NewHandler(authSvc, syncSvc, orderSvc, configStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("surplussync started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
		"cache_ttl", cfg.CacheTTL,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
