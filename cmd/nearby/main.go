package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rodaine/table"
	"walktimes.dev/internal/app"
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/nearby"
)

func main() {
	appconf.LoadDotEnv()

	var cfg appconf.Config
	finish := appconf.RegisterFlags(flag.CommandLine, &cfg)
	at := flag.String("at", "", "Rider location as lat,lon (defaults to -default-location)")
	flag.Parse()
	if err := finish(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	coord, err := riderLocation(*at, cfg.DefaultLocation)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, coord); err != nil {
		logging.LogError(logger, "nearby board failed", err)
		os.Exit(1)
	}
}

func riderLocation(at string, fallback *geo.Coordinate) (geo.Coordinate, error) {
	if at != "" {
		return appconf.ParseCoordinate(at)
	}
	if fallback != nil {
		return *fallback, nil
	}
	return geo.Coordinate{}, fmt.Errorf("a location is required: pass -at lat,lon or set -default-location")
}

func run(ctx context.Context, cfg appconf.Config, logger *slog.Logger, coord geo.Coordinate) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	board, err := application.Nearby.Board(logging.WithLogger(ctx, logger), coord)
	if err != nil {
		return err
	}
	printBoard(os.Stdout, board, cfg.Location)
	return nil
}

func printBoard(w io.Writer, board *nearby.Board, loc *time.Location) {
	fmt.Fprintf(w, "Departures near %.4f, %.4f (%s, %s)\n\n",
		board.Location.Latitude, board.Location.Longitude,
		board.Source, board.GeneratedAt.In(loc).Format("15:04:05"))
	if board.WalkingUnavailable {
		fmt.Fprintln(w, "Walking estimates unavailable; leave times are omitted.")
	}

	tbl := table.New("Route", "Headsign", "Stop", "Walk", "Next", "Leave").WithWriter(w)
	for _, route := range board.Routes {
		for _, p := range route.Patterns {
			tbl.AddRow(route.DisplayName, p.Headsign, p.Stop.Name, walkText(p.Stop), p.Next.PrimaryText, leaveText(p.Next, loc))
		}
	}
	tbl.Print()
}

func walkText(s nearby.StopEntry) string {
	if s.DistanceMiles == nil || s.WalkSeconds == nil {
		return s.Direction
	}
	return fmt.Sprintf("%.2f mi, %d min %s", *s.DistanceMiles, int(*s.WalkSeconds/60+0.5), s.Direction)
}

func leaveText(d nearby.DepartureEntry, loc *time.Location) string {
	if d.LeaveAt == nil {
		return "-"
	}
	text := d.LeaveAt.In(loc).Format("3:04 PM")
	if !d.Reachable {
		text += " (missed)"
	}
	return text
}
