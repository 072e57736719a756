package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"survey-drafts/internal/api"
	"survey-drafts/internal/config"
	"survey-drafts/internal/db"
	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/middleware"
	"survey-drafts/internal/services/formsession"
	"survey-drafts/internal/telemetry"
)

/*
LEARNING: GRACEFUL SHUTDOWN PATTERN

Shutdown order matters here:
1. stop accepting HTTP requests
2. unload every form session (each one flushes its pending autosave)
3. stop the push hub
4. close the draft store
5. flush traces
Closing the store before step 2 would lose the last edits.
*/

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	tracingShutdown, err := telemetry.InitTracing("survey-drafts", cfg.JaegerEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
		tracingShutdown = func(context.Context) error { return nil }
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	kv, closeStore, err := db.OpenStore(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to open draft store", "store_backend", cfg.StoreBackend, "error", err)
	}
	if cfg.SharedBackend() {
		log.Warn("draft store is shared between processes; concurrent saves are last-writer-wins",
			"store_backend", cfg.StoreBackend)
	}

	store := drafts.NewStore(kv, cfg.DraftStorageKey, log)
	manager := drafts.NewManager(store, drafts.NewIdentityResolver(nil, nil), log)

	hub := formsession.NewHub(log)
	hub.Start()

	bridge := drafts.NewBridge(manager, hub, log)
	registry := formsession.NewRegistry(manager, bridge, hub, formsession.Options{
		AutosaveDelay: cfg.AutosaveDelay,
		IdleTimeout:   cfg.SessionIdleTimeout,
	}, log)
	registry.Start()

	wsHandler := formsession.NewWebSocketHandler(registry, hub, log)
	handler := api.NewHandler(registry, wsHandler, cfg.StoreBackend, log)
	auth := middleware.NewAuthMiddleware(cfg.JWTSecret, log)
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty; every session runs anonymously")
	}

	router := api.SetupRoutes(handler, auth, log)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", addr, "store_backend", cfg.StoreBackend,
			"autosave_delay", cfg.AutosaveDelay.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}

	registry.Shutdown()
	hub.Shutdown()

	if err := closeStore(); err != nil {
		log.Warn("failed to close draft store", "error", err)
	}
	if err := tracingShutdown(shutdownCtx); err != nil {
		log.Warn("failed to flush traces", "error", err)
	}

	log.Info("server shutdown complete")
}
