package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dpetrov/link-comb/app/api"
	"github.com/dpetrov/link-comb/app/cfg"
	"github.com/dpetrov/link-comb/app/database"
	"github.com/dpetrov/link-comb/app/feed"
	"github.com/dpetrov/link-comb/app/resolver"
	"github.com/dpetrov/link-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting LinkComb", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	sourceRepo := database.NewSourceRepo(db)
	articleRepo := database.NewArticleRepo(db)

	urlValidator := resolver.NewValidator()
	decoder := resolver.NewDecoder(resolver.DecoderOptions{
		RequestTimeout:    time.Duration(appCfg.RequestTimeout) * time.Second,
		MaxRedirects:      appCfg.MaxRedirects,
		RateLimitDelay:    time.Duration(appCfg.RateLimitDelay) * time.Millisecond,
		MaxRetries:        appCfg.ResolveRetries,
		LegacyIDThreshold: appCfg.LegacyIDThreshold,
		UserAgent:         appCfg.UserAgent,
	}, urlValidator)
	retryPolicy := resolver.NewRetryPolicy(
		appCfg.MaxRetries,
		time.Duration(appCfg.BackoffBase)*time.Second,
		time.Duration(appCfg.MaxJitter)*time.Second)

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.RequestTimeout) * time.Second,
	}

	parser := feed.NewParser()
	metadataExtractor := feed.NewMetadataExtractor()
	contentExtractor := feed.NewContentExtractor()

	scheduler := tasks.NewScheduler(configCache, sourceRepo, articleRepo, httpClient,
		parser, decoder, retryPolicy, urlValidator, metadataExtractor, contentExtractor)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	handler := api.NewHandler(configCache, sourceRepo, articleRepo, decoder, httpClient, parser, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
