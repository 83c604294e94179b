package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/soundshift/soundshift/cmd/api/api"
	"github.com/soundshift/soundshift/cmd/config"
	"github.com/soundshift/soundshift/lib/bridge"
	"github.com/soundshift/soundshift/lib/dom"
	"github.com/soundshift/soundshift/lib/logger"
	"github.com/soundshift/soundshift/lib/pageagent"
	"github.com/soundshift/soundshift/lib/realmbus"
	"github.com/soundshift/soundshift/lib/scriptcache"
	"github.com/soundshift/soundshift/lib/store"
)

func main() {
	slogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load configuration from environment variables
	config, err := config.Load()
	if err != nil {
		slogger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	slogger.Info("server configuration", "config", config)

	// context cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settingsStore, err := store.Open(config.SettingsDBPath)
	if err != nil {
		slogger.Error("failed to open settings store", "err", err)
		os.Exit(1)
	}

	var cache *scriptcache.Cache
	if config.AgentBundlePath != "" {
		cache, err = scriptcache.New(config.AgentBundlePath, slogger)
		if err != nil {
			slogger.Error("failed to watch agent bundle", "err", err)
			os.Exit(1)
		}
	}

	// The page realm: a host document reachable only through the realm bus.
	bus := realmbus.New(slogger)
	doc := dom.NewDocument("https://"+config.TargetHost+"/", "Web Player")

	br := bridge.New(bus, settingsStore, bridge.Config{
		CallTimeout:         config.CallTimeout(),
		ReadyPollInterval:   config.ReadyPollInterval(),
		ReadyPollAttempts:   config.ReadyPollAttempts,
		ElementPollInterval: config.ElementPollInterval(),
		ElementPollAttempts: config.ElementPollAttempts,
	}, slogger)

	// Restore last-used settings once at startup.
	speed, err := settingsStore.Speed(ctx)
	if err != nil {
		slogger.Error("failed to read persisted speed", "err", err)
		os.Exit(1)
	}
	pitch, err := settingsStore.Pitch(ctx)
	if err != nil {
		slogger.Error("failed to read persisted pitch", "err", err)
		os.Exit(1)
	}
	br.RestoreSettings(pageagent.Settings{Speed: speed, PreservesPitch: pitch == 0})
	slogger.Info("restored settings", "speed", speed, "pitch", pitch)

	br.Inject(doc)

	apiService := api.New(br, settingsStore, cache, config.TargetHost)
	apiService.RegisterTab(doc)

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.Logger,
		chiMiddleware.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxWithLogger := logger.AddToContext(r.Context(), slogger)
				next.ServeHTTP(w, r.WithContext(ctxWithLogger))
			})
		},
	)
	apiService.Routes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: r,
	}

	go func() {
		slogger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slogger.Error("http server failed", "err", err)
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	slogger.Info("shutdown signal received")

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Shutdown(context.Background())
	})
	g.Go(func() error {
		return apiService.Shutdown(ctx)
	})

	if err := g.Wait(); err != nil {
		slogger.Error("server failed to shutdown", "err", err)
	}

	bus.Close()
}
