package matrix

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/bluele/gcache"
	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/logging"
	"walktimes.dev/internal/store"
)

// OriginPrecision is the number of decimal places an origin is rounded to
// before it is used as a cache key (about 11 m).
const OriginPrecision = 4

// CacheKey identifies one walk estimate.
type CacheKey struct {
	Origin string
	StopID string
}

// OriginKey renders origin rounded to OriginPrecision as "lat,lon".
func OriginKey(origin geo.Coordinate) string {
	q := geo.Quantize(origin, OriginPrecision)
	return strconv.FormatFloat(q.Latitude, 'f', OriginPrecision, 64) + "," +
		strconv.FormatFloat(q.Longitude, 'f', OriginPrecision, 64)
}

// Cache stores estimates. Implementations treat lookup failures as misses.
type Cache interface {
	Get(ctx context.Context, key CacheKey) (Estimate, bool)
	Set(ctx context.Context, key CacheKey, e Estimate)
}

// MemoryCache is an LRU with per-entry expiry.
type MemoryCache struct {
	cache gcache.Cache
}

// NewMemoryCache holds up to size estimates. A ttl of zero keeps entries until evicted.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &MemoryCache{cache: builder.Build()}
}

func (m *MemoryCache) Get(_ context.Context, key CacheKey) (Estimate, bool) {
	v, err := m.cache.Get(key)
	if err != nil {
		return Estimate{}, false
	}
	e, ok := v.(Estimate)
	return e, ok
}

func (m *MemoryCache) Set(_ context.Context, key CacheKey, e Estimate) {
	_ = m.cache.Set(key, e)
}

// TravelTimeStore is the persistence the store-backed cache needs.
type TravelTimeStore interface {
	GetTravelTime(ctx context.Context, originKey, stopID string, maxAge time.Duration) (store.TravelTime, error)
	UpsertTravelTime(ctx context.Context, tt store.TravelTime) error
}

// StoreCache keeps estimates in the database so they survive restarts.
type StoreCache struct {
	store  TravelTimeStore
	maxAge time.Duration
	now    func() time.Time
}

func NewStoreCache(s TravelTimeStore, maxAge time.Duration) *StoreCache {
	return &StoreCache{store: s, maxAge: maxAge, now: time.Now}
}

func (s *StoreCache) Get(ctx context.Context, key CacheKey) (Estimate, bool) {
	tt, err := s.store.GetTravelTime(ctx, key.Origin, key.StopID, s.maxAge)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.LogError(logging.FromContext(ctx), "travel time lookup failed", err,
				slog.String("origin", key.Origin),
				slog.String("stop_id", key.StopID))
		}
		return Estimate{}, false
	}
	return Estimate{DistanceMiles: tt.DistanceMiles, DurationSeconds: tt.DurationSeconds}, true
}

func (s *StoreCache) Set(ctx context.Context, key CacheKey, e Estimate) {
	err := s.store.UpsertTravelTime(ctx, store.TravelTime{
		OriginKey:       key.Origin,
		StopID:          key.StopID,
		DistanceMiles:   e.DistanceMiles,
		DurationSeconds: e.DurationSeconds,
		FetchedAt:       s.now(),
	})
	if err != nil {
		logging.LogError(logging.FromContext(ctx), "travel time save failed", err,
			slog.String("origin", key.Origin),
			slog.String("stop_id", key.StopID))
	}
}

// Tiered consults caches in order and backfills the faster tiers on a hit.
type Tiered []Cache

func (t Tiered) Get(ctx context.Context, key CacheKey) (Estimate, bool) {
	for i, c := range t {
		if e, ok := c.Get(ctx, key); ok {
			for _, faster := range t[:i] {
				faster.Set(ctx, key, e)
			}
			return e, true
		}
	}
	return Estimate{}, false
}

func (t Tiered) Set(ctx context.Context, key CacheKey, e Estimate) {
	for _, c := range t {
		c.Set(ctx, key, e)
	}
}
