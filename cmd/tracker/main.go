package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"tracker.redline.org/internal/app"
	"tracker.redline.org/internal/config"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		port       = flag.Int("port", 4000, "API server port")
		env        = flag.String("env", "development", "Environment (development|staging|production)")
		configFile = flag.String("config-file", "", "Path to a local JSON or YAML tracker configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON or YAML tracker configuration file")
		refresh    = flag.Duration("refresh", config.MinRefreshInterval, "Time between refresh cycles (minimum 30s)")
	)
	flag.Parse()

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	environ, _ := config.LoadEnv()
	logger := newLogger(*env)

	if err := report.SetupSentry(report.SentryOptions{DSN: environ.SentryDSN, Env: *env, Release: version}); err != nil {
		logger.Error("Failed to initialize Sentry", "error", err)
	}
	defer report.FlushSentry()
	report.ConfigureScope(*env, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewPooledClient()

	var (
		tracker models.Tracker
		err     error
	)
	if *configFile != "" {
		tracker, err = config.LoadConfigFromFile(*configFile)
	} else {
		loader := config.NewConfigService(logger, client, nil)
		tracker, err = loader.LoadConfigFromURL(ctx, *configURL, environ.ConfigAuthUser, environ.ConfigAuthPass)
	}
	if err != nil {
		logger.Error("Error loading configuration", "error", err)
		report.FlushSentry()
		os.Exit(1)
	}

	cfg := config.NewConfig(*port, *env, tracker)
	cfg.RefreshInterval = config.ClampRefreshInterval(*refresh)
	cfg.BaseURL = environ.BaseURL
	cfg.APIKey = environ.APIKey
	if *refresh < config.MinRefreshInterval {
		logger.Warn("Refresh interval raised to the minimum", "requested", *refresh, "interval", cfg.RefreshInterval)
	}
	if cfg.APIKey == "" {
		logger.Warn("MBTA_API_KEY is not set, requests are anonymous and heavily rate limited")
	}

	application := app.New(cfg, logger, client, version)
	application.Start(ctx)

	// If a remote URL is specified, refresh the configuration every minute
	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, environ.ConfigAuthUser, environ.ConfigAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "route", tracker.RouteID, "stop", tracker.StopID)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			report.ReportError(err, sentry.LevelFatal)
			report.FlushSentry()
			logger.Error(err.Error())
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down cleanly", "error", err)
		}
	}
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
