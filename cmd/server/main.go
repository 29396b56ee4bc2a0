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

	"postit/internal/config"
	"postit/internal/gateway"
	"postit/internal/logger"

	"github.com/grafana/pyroscope-go"
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

	if cfg.PyroscopeAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "postit.server",
			ServerAddress:   cfg.PyroscopeAddress,
		})
		if err != nil {
			logg.Warn("pyroscope start failed", "err", err)
		} else {
			defer func() { _ = profiler.Stop() }()
		}
	}

	store, closeStore, err := openStore(ctx, cfg, logg)
	if err != nil {
		logg.Error("store init", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}

	gw := gateway.New(store, logg,
		gateway.WithRejectUnknown(cfg.GatewayRejectUnknown),
		gateway.WithControlBuffer(cfg.WSOutboxBuffer),
	)
	calls := make(chan gateway.Call)

	logg.Info("starting postit", "port", cfg.AppPort, "store", cfg.StoreBackend)

	app := setupRouter(deps{cfg: cfg, store: store, gw: gw, calls: calls})
	portStr := fmt.Sprintf(":%d", cfg.AppPort)

	g.Go(func() error {
		err := app.Listen(portStr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return gw.Serve(ctx, calls)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return closeStore(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("fatal", "err", err)
		os.Exit(1)
	}
	logg.Info("graceful shutdown complete")
}
