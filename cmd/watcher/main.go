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

	"github.com/julienschmidt/httprouter"
	"walktimes.dev/internal/app"
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/publisher"
)

func main() {
	appconf.LoadDotEnv()

	var cfg appconf.Config
	finish := appconf.RegisterFlags(flag.CommandLine, &cfg)
	timeout := flag.Duration("board-timeout", 30*time.Second, "Upper bound for one fetch cycle")
	flag.Parse()
	if err := finish(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewStructuredLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *timeout); err != nil {
		logging.LogError(logger, "watcher stopped", err)
		os.Exit(1)
	}
}

func run(cfg appconf.Config, logger *slog.Logger, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix, logger, application.Metrics)
	if err != nil {
		return err
	}
	defer pub.Close()

	watcher := publisher.NewWatcher(logging.WithLogger(ctx, logger), publisher.WatcherConfig{
		Boards:    application.Nearby,
		Publisher: pub,
		Tracker:   application.Tracker,
		Stale:     application.Metrics,
		Logger:    logger,
		Timeout:   timeout,
	})
	defer watcher.Close()

	if _, err := pub.SubscribeLocations(func(session string, data []byte) {
		if err := watcher.HandleLocation(session, data); err != nil {
			logging.LogError(logger, "rejected location message", err)
		}
	}); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           opsRouter(application),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go func() {
		logging.LogOperation(logger, "starting_ops_server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError(logger, "ops server failed", err)
		}
	}()

	logging.LogOperation(logger, "watcher_started",
		slog.String("subject", publisher.LocationWildcard(cfg.SubjectPrefix)),
		slog.String("source", application.Nearby.SourceName()))
	<-ctx.Done()

	logging.LogOperation(logger, "shutting_down_watcher")
	logging.SafeShutdown(logger, "ops_server", 5*time.Second, srv.Shutdown)
	return nil
}

// opsRouter serves /healthz and, when enabled, /metrics.
func opsRouter(application *app.Application) http.Handler {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if application.Config.MetricsEnabled {
		router.Handler(http.MethodGet, "/metrics", application.Metrics.Handler())
	}
	return router
}
