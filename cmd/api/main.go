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

	"walktimes.dev/internal/app"
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/restapi"
)

func main() {
	appconf.LoadDotEnv()

	var cfg appconf.Config
	finish := appconf.RegisterFlags(flag.CommandLine, &cfg)
	flag.Parse()
	if err := finish(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewStructuredLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logging.LogError(logger, "server stopped", err)
		os.Exit(1)
	}
}

func run(cfg appconf.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	api := restapi.NewRestAPI(application)
	defer api.Close()

	if application.Store != nil && cfg.TravelCacheTTL > 0 {
		go pruneTravelTimes(ctx, application, cfg.TravelCacheTTL)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server",
			slog.String("addr", srv.Addr),
			slog.String("env", cfg.Env.String()),
			slog.String("source", string(cfg.Source)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.LogOperation(logger, "shutting_down_server")
	logging.SafeShutdown(logger, "http_server", 10*time.Second, srv.Shutdown)
	return nil
}

// pruneTravelTimes drops persisted estimates older than ttl once an hour.
func pruneTravelTimes(ctx context.Context, application *app.Application, ttl time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := application.Store.Queries.PruneTravelTimes(ctx, ttl)
		if err != nil {
			logging.LogError(application.Logger, "pruning travel times", err)
			continue
		}
		if n > 0 {
			logging.LogOperation(application.Logger, "travel_times_pruned", slog.Int64("rows", n))
		}
	}
}
