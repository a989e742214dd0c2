package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/summitapp/viewerd/internal/api"
	"github.com/summitapp/viewerd/internal/config"
	"github.com/summitapp/viewerd/internal/docsource"
	"github.com/summitapp/viewerd/internal/obs"
	"github.com/summitapp/viewerd/internal/progress"
	"github.com/summitapp/viewerd/internal/render"
	"github.com/summitapp/viewerd/internal/viewer"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize backend clients.
	source := docsource.NewSource(cfg.BackendURL, cfg.DocumentEndpoint, cfg.MaxDocumentBytes, cfg.FetchTimeout, log)
	backend := progress.NewClient(cfg.BackendURL, cfg.ProgressEndpoint, cfg.StatusEndpoint)

	hook := obs.LogHook{Log: log}
	deps := viewer.Deps{
		Source:   source,
		Progress: backend,
		Poller: &viewer.Poller{
			Client:   backend,
			Interval: cfg.PollInterval,
			Timeout:  cfg.PollTimeout,
			Hook:     hook,
			Log:      log,
		},
		Policy: render.Policy{
			MaxScale: cfg.MaxScale,
			MinScale: cfg.MinScale,
		},
		ResizeThresholdPx: cfg.ResizeThresholdPx,
		ResizeDebounce:    cfg.ResizeDebounce,
		Log:               log,
		Hook:              hook,
	}

	// Session registry with idle eviction.
	store := viewer.NewStore(cfg.SessionTTL, cfg.MaxSessions, log)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				store.Cleanup()
			}
		}
	}()

	// Initialize HTTP server.
	srv := api.NewServer(store, deps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.CloseAll()
		backend.Close()
	}()

	log.Info("starting viewerd", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
