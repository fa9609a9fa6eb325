package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	sqlite := New(nil, DriverSQLite)
	pg := New(nil, DriverPostgres)

	query := "SELECT a FROM t WHERE b = ? AND c = ?"
	assert.Equal(t, query, sqlite.rebind(query))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", pg.rebind(query))
}

func TestTravelTimeUpsertAndGet(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	_, err := q.GetTravelTime(ctx, "42.3551,-71.0656", "stop-near", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, q.UpsertTravelTime(ctx, TravelTime{
		OriginKey: "42.3551,-71.0656", StopID: "stop-near", DistanceMiles: 0.2, DurationSeconds: 240,
	}))
	require.NoError(t, q.UpsertTravelTime(ctx, TravelTime{
		OriginKey: "42.3551,-71.0656", StopID: "stop-near", DistanceMiles: 0.25, DurationSeconds: 300,
	}))

	tt, err := q.GetTravelTime(ctx, "42.3551,-71.0656", "stop-near", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0.25, tt.DistanceMiles, "upsert should replace the earlier estimate")
	assert.Equal(t, 300.0, tt.DurationSeconds)
	assert.True(t, now.Equal(tt.FetchedAt))

	now = now.Add(2 * time.Hour)
	_, err = q.GetTravelTime(ctx, "42.3551,-71.0656", "stop-near", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound, "stale estimates are not returned")

	_, err = q.GetTravelTime(ctx, "42.3551,-71.0656", "stop-near", 0)
	assert.NoError(t, err, "zero max age accepts any age")

	removed, err := q.PruneTravelTimes(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestCalibrationSamples(t *testing.T) {
	client := newTestClient(t)
	q := client.Queries
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	samples := []CalibrationSample{
		{RunID: "run-1", StopID: "a", HaversineKm: 1.0, WalkingMiles: 0.8, WalkingSeconds: 960, CreatedAt: base},
		{RunID: "run-1", StopID: "b", HaversineKm: 2.0, WalkingMiles: 1.5, WalkingSeconds: 1800, CreatedAt: base.Add(time.Second)},
		{RunID: "run-2", StopID: "c", HaversineKm: 0, WalkingMiles: 0.1, WalkingSeconds: 120, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, s := range samples {
		saved, err := q.InsertCalibrationSample(ctx, s)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
	}

	all, err := q.ListCalibrationSamples(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].StopID)
	assert.Equal(t, "c", all[2].StopID)

	run1, err := q.ListCalibrationSamples(ctx, "run-1", 0)
	require.NoError(t, err)
	assert.Len(t, run1, 2)

	limited, err := q.ListCalibrationSamples(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	summary, err := q.CalibrationSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Samples)
	assert.Equal(t, 2, summary.Runs)
	assert.InDelta(t, 1.0, summary.AvgHaversineKm, 1e-9)
	assert.InDelta(t, 0.8, summary.AvgWalkingMiles, 1e-9)
	assert.InDelta(t, 960, summary.AvgWalkingSeconds, 1e-9)
	// Zero straight-line distance is left out of the detour factor.
	assert.InDelta(t, (0.8*1.609344/1.0+1.5*1.609344/2.0)/2, summary.DetourFactor, 1e-9)
	assert.InDelta(t, 2880/2.4, summary.SecondsPerMile, 1e-9)
}

func TestCalibrationSummaryEmpty(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Queries.CalibrationSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CalibrationSummary{}, summary)
}
