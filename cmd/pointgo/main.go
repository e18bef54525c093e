package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/groundside/pointgo/internal/api"
	"github.com/groundside/pointgo/internal/auth"
	"github.com/groundside/pointgo/internal/catalog"
	"github.com/groundside/pointgo/internal/metrics"
	"github.com/groundside/pointgo/internal/track"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("POINTGO_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	catCfg := loadCatalogConfig(logger)
	store := catalog.NewStore()

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loadCatalog(ctx, catCfg, store, logger); err != nil {
		logger.Warn("starting without a catalog", "error", err)
	} else {
		metrics.SetCatalogObjects(store.Len())
	}

	trackCfg := loadTrackConfig(logger)
	tracker := track.NewHandler(store, trackCfg, logger)

	srvCfg := api.Config{
		Addr:            addr,
		Auth:            authCfg,
		TrustProxy:      trackCfg.TrustProxy,
		SnapshotWorkers: loadSnapshotWorkers(logger),
	}
	srv := api.NewServer(srvCfg, logger, store, tracker)

	// Background goroutine to update the catalog age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Periodic catalog refresh when a source URL is configured.
	if catCfg.SourceURL != "" && catCfg.RefreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(catCfg.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := loadCatalog(ctx, catCfg, store, logger); err != nil {
						logger.Warn("catalog refresh failed", "error", err)
						continue
					}
					metrics.SetCatalogObjects(store.Len())
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "catalog_objects", store.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

type catalogConfig struct {
	FilePath        string
	SourceURL       string
	RefreshInterval time.Duration
}

// loadCatalog populates the store from the configured file or URL.
// A file takes precedence; the URL is the refresh source.
func loadCatalog(ctx context.Context, cfg catalogConfig, store *catalog.Store, logger *slog.Logger) error {
	var (
		data   []byte
		source string
		err    error
	)
	switch {
	case cfg.FilePath != "" && store.Get() == nil:
		data, err = os.ReadFile(cfg.FilePath)
		source = cfg.FilePath
	case cfg.SourceURL != "":
		fetcher := catalog.NewFetcher(cfg.SourceURL, logger)
		data, err = fetcher.Fetch(ctx)
		source = cfg.SourceURL
	default:
		return errors.New("no catalog source configured")
	}
	if err != nil {
		return err
	}

	entries, err := catalog.Parse(bytes.NewReader(data), logger)
	if err != nil {
		return err
	}
	store.Set(catalog.NewSet(source, time.Now().UTC(), entries))
	logger.Info("catalog loaded", "source", source, "count", len(entries))
	return nil
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("POINTGO_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("POINTGO_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("POINTGO_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("POINTGO_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadCatalogConfig(logger *slog.Logger) catalogConfig {
	cfg := catalogConfig{
		RefreshInterval: 6 * time.Hour,
	}

	cfg.FilePath = os.Getenv("POINTGO_CATALOG_FILE")
	cfg.SourceURL = os.Getenv("POINTGO_CATALOG_URL")

	if v := os.Getenv("POINTGO_CATALOG_REFRESH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 60 {
			logger.Warn("invalid POINTGO_CATALOG_REFRESH_INTERVAL value, using default", "value", v, "default", 21600)
		} else {
			cfg.RefreshInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("catalog config",
		"file", cfg.FilePath,
		"source_url", cfg.SourceURL,
		"refresh_interval_seconds", cfg.RefreshInterval.Seconds(),
	)

	return cfg
}

func loadTrackConfig(logger *slog.Logger) track.Config {
	cfg := track.Config{
		MaxConcurrentPerIP: 10,
		MaxConcurrent:      200,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("POINTGO_TRACK_MAX_CONCURRENT_PER_IP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid POINTGO_TRACK_MAX_CONCURRENT_PER_IP value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("POINTGO_TRACK_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid POINTGO_TRACK_MAX_CONCURRENT value, using default", "value", v, "default", 200)
		} else {
			cfg.MaxConcurrent = n
		}
	}

	if v := os.Getenv("POINTGO_TRACK_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid POINTGO_TRACK_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("POINTGO_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid POINTGO_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("track config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_concurrent", cfg.MaxConcurrent,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadSnapshotWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()

	if v := os.Getenv("POINTGO_SNAPSHOT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid POINTGO_SNAPSHOT_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}

	logger.Info("snapshot config", "workers", workers)
	return workers
}
