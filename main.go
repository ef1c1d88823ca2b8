package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shiro46mt/jp-medicine-master/config"
	"github.com/shiro46mt/jp-medicine-master/data"
	"github.com/shiro46mt/jp-medicine-master/fetcher"
	"github.com/shiro46mt/jp-medicine-master/handlers"
	"github.com/shiro46mt/jp-medicine-master/health"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/master"
	"github.com/shiro46mt/jp-medicine-master/scheduler"
	"github.com/shiro46mt/jp-medicine-master/server"
	"github.com/shiro46mt/jp-medicine-master/validation"
)

func main() {
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logging:", err)
		os.Exit(1)
	}
	defer logging.Close()

	refreshTimes, _ := config.ParseRefreshTimes(cfg.RefreshTimes)

	store := data.NewCatalogStore()
	store.SetServerStartTime(time.Now())

	repo := fetcher.NewRepository(cfg.CatalogURL, cfg.DataBaseURL, cfg.HTTPTimeout, fetcher.NewCache(cfg.CacheDir))
	agPage := fetcher.NewAGPage(cfg.AGListURL, cfg.HTTPTimeout)
	svc := master.New(store, repo, repo, agPage)

	sched := scheduler.NewScheduler(store, svc, cfg.RefreshTimes)
	if err := sched.Start(); err != nil {
		if !errors.Is(err, scheduler.ErrInitialLoad) {
			logging.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
		logging.Warn("Serving without a data catalog, it will be fetched on the next request", "error", err)
	}
	defer sched.Stop()

	healthChecker := health.NewHealthChecker(store, refreshTimes)
	handler := handlers.NewHTTPHandler(svc, healthChecker, validation.NewDataValidator())
	srv := server.NewServer(cfg, handler)

	// Profiling endpoint, local development only
	if cfg.Env == config.EnvDevelopment {
		go func() {
			logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				logging.Error("Profiling server failed", "error", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logging.Info("Starting server", "address", cfg.Address, "port", cfg.Port, "env", cfg.Env)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
		return
	}
	logging.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		return
	}
	logging.Info("Server shutdown complete")
}
