// Package nearby runs one fetch cycle for a rider: predictions, grouping,
// walking estimates and next-departure selection, producing a Board.
package nearby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
	"walktimes.dev/internal/departures"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/matrix"
	"walktimes.dev/internal/mbta"
)

// PredictionSource returns predictions near a coordinate with every record
// they reference.
type PredictionSource interface {
	Name() string
	Predictions(ctx context.Context, coord geo.Coordinate) (*mbta.Payload, error)
}

// TravelTimer estimates walks from a rider to stops.
type TravelTimer interface {
	TravelTimes(ctx context.Context, origin geo.Coordinate, stops []matrix.Destination) (map[string]matrix.Estimate, error)
}

// Observer receives pipeline events. *metrics.Collector implements it.
type Observer interface {
	ObserveBoard(source string, d time.Duration)
	ObservePredictionFetch(result string)
	InconsistentDataInc()
	WalkingFailureInc()
}

type Options struct {
	// PredictionTTL is how long a payload is reused for the same rounded location.
	PredictionTTL time.Duration
	TimeZone      *time.Location
	Observer      Observer
	Now           func() time.Time
}

type Service struct {
	source   PredictionSource
	travel   TravelTimer
	tz       *time.Location
	observer Observer
	now      func() time.Time

	predictions gcache.Cache
	inflight    singleflight.Group
}

// NewService builds the pipeline. travel may be nil, in which case boards
// carry no walking estimates.
func NewService(source PredictionSource, travel TravelTimer, opts Options) *Service {
	s := &Service{
		source:   source,
		travel:   travel,
		tz:       opts.TimeZone,
		observer: opts.Observer,
		now:      opts.Now,
	}
	if s.tz == nil {
		s.tz = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.PredictionTTL > 0 {
		s.predictions = gcache.New(256).LRU().Expiration(opts.PredictionTTL).Build()
	}
	return s
}

func (s *Service) SourceName() string { return s.source.Name() }

// Snapshot is a fetched payload and its grouping for one location.
type Snapshot struct {
	Location geo.Coordinate
	Payload  *mbta.Payload
	Index    *mbta.Index
	Groups   []departures.RouteGroup
}

// Snapshot fetches and groups predictions near coord.
func (s *Service) Snapshot(ctx context.Context, coord geo.Coordinate) (*Snapshot, error) {
	payload, err := s.fetchPredictions(ctx, coord)
	if err != nil {
		return nil, err
	}
	idx := payload.Index()
	groups, err := departures.Group(payload.Data, idx, coord)
	if err != nil {
		s.inconsistent(ctx, err)
		return nil, err
	}
	return &Snapshot{Location: coord, Payload: payload, Index: idx, Groups: groups}, nil
}

// Board runs a full fetch cycle for coord. Walking estimates are requested
// only after grouping kept at least one stop; their failure is logged and
// yields a board with WalkingUnavailable set.
func (s *Service) Board(ctx context.Context, coord geo.Coordinate) (*Board, error) {
	board, _, err := s.BoardWithSnapshot(ctx, coord)
	return board, err
}

// BoardWithSnapshot is Board that also returns the snapshot the board was
// built from, for callers that render the included records.
func (s *Service) BoardWithSnapshot(ctx context.Context, coord geo.Coordinate) (*Board, *Snapshot, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(slog.String("component", "nearby"))

	snap, err := s.Snapshot(ctx, coord)
	if err != nil {
		return nil, nil, err
	}

	var estimates map[string]matrix.Estimate
	walkingUnavailable := s.travel == nil
	if dests := Destinations(snap.Groups, snap.Index); len(dests) > 0 && s.travel != nil {
		estimates, err = s.travel.TravelTimes(ctx, coord, dests)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logging.LogError(logger, "walking estimates unavailable", err,
				slog.Int("stops", len(dests)))
			if s.observer != nil {
				s.observer.WalkingFailureInc()
			}
			estimates = nil
			walkingUnavailable = true
		}
	}

	board, err := BuildBoard(BuildInput{
		Location:           coord,
		Source:             s.source.Name(),
		Index:              snap.Index,
		Groups:             snap.Groups,
		Estimates:          estimates,
		WalkingUnavailable: walkingUnavailable,
		Now:                s.now(),
		TimeZone:           s.tz,
	})
	if err != nil {
		s.inconsistent(ctx, err)
		return nil, nil, err
	}

	if s.observer != nil {
		s.observer.ObserveBoard(s.source.Name(), time.Since(start))
	}
	logging.LogOperation(logger, "board_built",
		slog.String("location", coord.String()),
		slog.Int("routes", len(board.Routes)),
		slog.Int("estimates", len(estimates)),
		slog.Bool("walking_unavailable", walkingUnavailable))
	return board, snap, nil
}

func (s *Service) inconsistent(ctx context.Context, err error) {
	if !errors.Is(err, departures.ErrInconsistentData) {
		return
	}
	logging.LogError(logging.FromContext(ctx), "inconsistent prediction payload", err,
		slog.String("component", "nearby"),
		slog.String("source", s.source.Name()))
	if s.observer != nil {
		s.observer.InconsistentDataInc()
	}
}

// fetchPredictions serves from the short-lived cache, and otherwise joins or
// starts the single in-flight fetch for the rounded location.
func (s *Service) fetchPredictions(ctx context.Context, coord geo.Coordinate) (*mbta.Payload, error) {
	key := matrix.OriginKey(coord)
	if s.predictions != nil {
		if v, err := s.predictions.Get(key); err == nil {
			s.observeFetch("cached")
			return v.(*mbta.Payload), nil
		}
	}

	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		// The fetch outlives any single caller so joined callers are not
		// cancelled by the first one leaving.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		payload, err := s.source.Predictions(fetchCtx, coord)
		if err != nil {
			return nil, err
		}
		if s.predictions != nil {
			_ = s.predictions.Set(key, payload)
		}
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%s predictions: %w", s.source.Name(), res.Err)
		}
		if res.Shared {
			s.observeFetch("shared")
		} else {
			s.observeFetch("fetched")
		}
		return res.Val.(*mbta.Payload), nil
	}
}

func (s *Service) observeFetch(result string) {
	if s.observer != nil {
		s.observer.ObservePredictionFetch(result)
	}
}
