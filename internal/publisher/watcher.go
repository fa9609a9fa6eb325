package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/nearby"
)

// LocationMessage is what a rider publishes on <prefix>.location.<session>.
// End releases the session.
type LocationMessage struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
	End bool     `json:"end,omitempty"`
}

// BoardMessage answers one location. Error is set instead of Board when the
// fetch cycle failed.
type BoardMessage struct {
	Session    string        `json:"session"`
	Generation uint64        `json:"generation"`
	Board      *nearby.Board `json:"board,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ErrWatcherClosed is returned by HandleLocation after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// BoardBuilder runs one fetch cycle. *nearby.Service implements it.
type BoardBuilder interface {
	Board(ctx context.Context, coord geo.Coordinate) (*nearby.Board, error)
}

// BoardPublisher delivers boards. *NATSPublisher implements it.
type BoardPublisher interface {
	PublishBoard(session string, msg BoardMessage) error
}

// StaleObserver counts boards dropped because a newer location arrived.
type StaleObserver interface {
	StaleBoardInc()
}

type WatcherConfig struct {
	Boards    BoardBuilder
	Publisher BoardPublisher
	Tracker   *nearby.Tracker
	Stale     StaleObserver
	Logger    *slog.Logger
	// Timeout bounds one fetch cycle.
	Timeout time.Duration
}

// Watcher turns location messages into boards. Every location starts a new
// generation for its session; a board finished after a newer location
// arrived is discarded rather than published.
type Watcher struct {
	cfg WatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewWatcher(ctx context.Context, cfg WatcherConfig) *Watcher {
	if cfg.Tracker == nil {
		cfg.Tracker = nearby.NewTracker()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Logger = cfg.Logger.With(slog.String("component", "watcher"))
	ctx, cancel := context.WithCancel(ctx)
	return &Watcher{cfg: cfg, ctx: ctx, cancel: cancel}
}

// HandleLocation decodes data and starts a fetch cycle for session. It
// returns once the cycle is started.
func (w *Watcher) HandleLocation(session string, data []byte) error {
	var msg LocationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("session %s: decoding location: %w", session, err)
	}
	if msg.End {
		w.cfg.Tracker.Forget(session)
		return nil
	}
	if msg.Lat == nil || msg.Lon == nil {
		return fmt.Errorf("session %s: lat and lon are required", session)
	}
	coord := geo.Coordinate{Latitude: *msg.Lat, Longitude: *msg.Lon}
	if err := geo.Validate(coord); err != nil {
		return fmt.Errorf("session %s: %w", session, err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("session %s: %w", session, ErrWatcherClosed)
	}
	gen := w.cfg.Tracker.Begin(session)
	w.wg.Add(1)
	w.mu.Unlock()
	go func() {
		defer w.wg.Done()
		w.run(session, gen, coord)
	}()
	return nil
}

func (w *Watcher) run(session string, gen uint64, coord geo.Coordinate) {
	logger := w.cfg.Logger.With(slog.String("session", session), slog.Uint64("generation", gen))
	ctx, cancel := context.WithTimeout(logging.WithLogger(w.ctx, logger), w.cfg.Timeout)
	defer cancel()

	board, err := w.cfg.Boards.Board(ctx, coord)
	if !w.cfg.Tracker.IsCurrent(session, gen) {
		if w.cfg.Stale != nil {
			w.cfg.Stale.StaleBoardInc()
		}
		logging.LogOperation(logger, "stale_board_discarded")
		return
	}

	msg := BoardMessage{Session: session, Generation: gen, Board: board}
	if err != nil {
		if w.ctx.Err() != nil {
			return
		}
		logging.LogError(logger, "board failed", err, slog.String("location", coord.String()))
		msg.Board = nil
		msg.Error = err.Error()
	}
	if err := w.cfg.Publisher.PublishBoard(session, msg); err != nil {
		logging.LogError(logger, "publishing board failed", err)
	}
}

// Close cancels in-flight cycles and waits for them to return.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
	w.wg.Wait()
}
