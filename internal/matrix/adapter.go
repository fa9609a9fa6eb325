package matrix

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
)

const (
	// MaxDestinations is the number of destinations that fit in one request
	// alongside the single source (25 waypoints).
	MaxDestinations = 24
	MetersToMiles   = 0.000621371
)

// Estimate is a walking estimate from the rider to one stop.
type Estimate struct {
	DistanceMiles   float64 `json:"distanceMiles"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Destination is a stop to estimate a walk to.
type Destination struct {
	StopID     string
	Coordinate geo.Coordinate
}

// Fetcher issues one matrix request. *Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) (*Response, error)
}

// CacheObserver is told whether each destination was served from cache.
type CacheObserver interface {
	ObserveTravelCache(hit bool)
}

type Adapter struct {
	fetcher     Fetcher
	cache       Cache
	concurrency int
	observer    CacheObserver
}

type AdapterOption func(*Adapter)

// WithCache serves and records estimates through c.
func WithCache(c Cache) AdapterOption {
	return func(a *Adapter) { a.cache = c }
}

// WithConcurrency bounds the number of batch requests in flight.
func WithConcurrency(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithCacheObserver(o CacheObserver) AdapterOption {
	return func(a *Adapter) { a.observer = o }
}

func NewAdapter(fetcher Fetcher, opts ...AdapterOption) *Adapter {
	a := &Adapter{fetcher: fetcher, concurrency: 4}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TravelTimes estimates the walk from origin to every distinct stop. Stops
// whose distance or duration comes back null are left out of the result.
// Destinations beyond MaxDestinations are split into further requests.
func (a *Adapter) TravelTimes(ctx context.Context, origin geo.Coordinate, stops []Destination) (map[string]Estimate, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "matrix"))
	originKey := OriginKey(origin)

	result := make(map[string]Estimate, len(stops))
	var misses []Destination
	for _, d := range Dedupe(stops) {
		if a.cache != nil {
			if e, ok := a.cache.Get(ctx, CacheKey{Origin: originKey, StopID: d.StopID}); ok {
				result[d.StopID] = e
				a.observe(true)
				continue
			}
			a.observe(false)
		}
		misses = append(misses, d)
	}
	if len(misses) == 0 {
		return result, nil
	}

	batches := Batch(misses, MaxDestinations)
	fetched := make([]map[string]Estimate, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			coords := make([]geo.Coordinate, len(batch))
			for j, d := range batch {
				coords[j] = d.Coordinate
			}
			resp, err := a.fetcher.Fetch(gctx, origin, coords)
			if err != nil {
				return fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
			}
			fetched[i] = Align(batch, resp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, estimates := range fetched {
		for stopID, e := range estimates {
			result[stopID] = e
			if a.cache != nil {
				a.cache.Set(ctx, CacheKey{Origin: originKey, StopID: stopID}, e)
			}
		}
	}

	logging.LogOperation(logger, "travel_times_fetched",
		slog.Int("stops", len(stops)),
		slog.Int("requested", len(misses)),
		slog.Int("batches", len(batches)),
		slog.Int("estimates", len(result)))
	return result, nil
}

func (a *Adapter) observe(hit bool) {
	if a.observer != nil {
		a.observer.ObserveTravelCache(hit)
	}
}

// Align maps response column i+1 to destination i, converting meters to
// miles. Destinations with a null distance or duration are omitted.
func Align(destinations []Destination, resp *Response) map[string]Estimate {
	out := make(map[string]Estimate, len(destinations))
	for i, d := range destinations {
		distance := cell(resp.Distances, i+1)
		duration := cell(resp.Durations, i+1)
		if distance == nil || duration == nil {
			continue
		}
		out[d.StopID] = Estimate{
			DistanceMiles:   *distance * MetersToMiles,
			DurationSeconds: *duration,
		}
	}
	return out
}

// Dedupe drops repeated stop ids, keeping the first occurrence.
func Dedupe(stops []Destination) []Destination {
	seen := make(map[string]bool, len(stops))
	out := make([]Destination, 0, len(stops))
	for _, s := range stops {
		if seen[s.StopID] {
			continue
		}
		seen[s.StopID] = true
		out = append(out, s)
	}
	return out
}

// Batch splits stops into consecutive chunks of at most size.
func Batch(stops []Destination, size int) [][]Destination {
	if size <= 0 {
		size = MaxDestinations
	}
	var batches [][]Destination
	for start := 0; start < len(stops); start += size {
		end := min(start+size, len(stops))
		batches = append(batches, stops[start:end])
	}
	return batches
}
