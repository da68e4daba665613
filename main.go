package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absorpgen/absorpgen-api/app"
	"github.com/absorpgen/absorpgen-api/config"
	"github.com/absorpgen/absorpgen-api/handlers"
	"github.com/absorpgen/absorpgen-api/health"
	"github.com/absorpgen/absorpgen-api/logging"
	"github.com/absorpgen/absorpgen-api/scheduler"
	"github.com/absorpgen/absorpgen-api/server"
	"github.com/absorpgen/absorpgen-api/validation"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(logging.Options{
		LogDir:         cfg.LogDir,
		Level:          logging.ParseLogLevel(cfg.LogLevel),
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.Close()

	logging.Info("Starting dosing API", "env", cfg.Env, "reload_at", cfg.CatalogReloadAt)

	components, err := app.New(cfg)
	if err != nil {
		logging.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	// The initial catalog load runs inside Start and aborts startup on failure
	sched := scheduler.NewScheduler(components.Store, components.Loader, cfg.CatalogReloadAt)
	sched.AddReloadHook(scheduler.ReloadHook{Name: "safety tables", Reload: components.Safety.Reload})
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	checker := health.NewHealthChecker(components.Store, health.Dependencies{
		Breaker:    components.RxNorm,
		BrandCache: components.BrandCache,
		ReloadAt:   cfg.CatalogReloadAt,
	})
	handler := handlers.NewHTTPHandler(components.Engine, validation.NewDataValidator(), checker, components.Store)
	srv := server.NewServer(cfg, handler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}
