package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/middlewares"
	"github.com/ldelvillar/snap-notes-sub000/internal/clients/redis"
	"github.com/ldelvillar/snap-notes-sub000/internal/config"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Create bootstrap logger for early errors
	bootstrapLog := log.New(os.Stderr, "bootstrap: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		bootstrapLog.Printf("config load failed: %v", err)
		os.Exit(1)
	}

	logg, err := logger.Init(cfg)
	if err != nil {
		bootstrapLog.Printf("logger init failed: %v", err)
		os.Exit(1)
	}

	stopProfiler := startProfiler(cfg, logg)
	defer stopProfiler()

	store, closeStore, err := openStore(ctx, cfg, logg)
	if err != nil {
		logg.Error("store init", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	prom := middlewares.NewRegistry()
	metrics := notes.NewMetrics(prom)
	registry := notes.NewRegistry(logg, metrics)

	var notifier notes.Notifier = registry
	var bridge *redis.Bridge
	if cfg.RedisURL != "" {
		bridge, err = redis.New(ctx, cfg.RedisURL, registry, logg)
		if err != nil {
			logg.Error("redis init", "err", err)
			_ = closeStore(context.Background())
			os.Exit(1)
		}
		notifier = bridge
		g.Go(func() error { return bridge.Run(ctx) })
	}

	logg.Info("starting SnapNotes", "port", cfg.AppPort, "store", cfg.StoreDriver, "fanout", bridge != nil)

	// Setup router and start server
	app := setupRouter(cfg, routerDeps{
		Store:    store,
		Notifier: notifier,
		Registry: registry,
		Metrics:  metrics,
		Prom:     prom,
	})
	portStr := fmt.Sprintf(":%d", cfg.AppPort)

	g.Go(func() error {
		err := app.Listen(portStr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}

		// let refetches started by the last requests finish before the store goes away
		registry.Wait()

		if bridge != nil {
			if err := bridge.Close(); err != nil {
				logg.Warn("redis close", "err", err)
			}
		}
		return closeStore(shutdownCtx)
	})

	// Wait and exit
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("fatal", "err", err)
		os.Exit(1)
	}
	logg.Info("graceful shutdown complete")
}
