package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"walktimes.dev/internal/logging"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db     DBTX
	driver string
	now    func() time.Time
}

func New(db DBTX, driver string) *Queries {
	return &Queries{db: db, driver: driver, now: time.Now}
}

// WithTx returns queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, driver: q.driver, now: q.now}
}

// rebind rewrites "?" placeholders as "$1", "$2", ... for Postgres.
func (q *Queries) rebind(query string) string {
	if q.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type TravelTime struct {
	OriginKey       string
	StopID          string
	DistanceMiles   float64
	DurationSeconds float64
	FetchedAt       time.Time
}

const getTravelTime = `
SELECT origin_key, stop_id, distance_miles, duration_seconds, fetched_at
FROM travel_times
WHERE origin_key = ? AND stop_id = ? AND fetched_at >= ?`

// GetTravelTime returns the estimate for originKey and stopID fetched within
// maxAge. A zero maxAge accepts any age.
func (q *Queries) GetTravelTime(ctx context.Context, originKey, stopID string, maxAge time.Duration) (TravelTime, error) {
	var oldest int64
	if maxAge > 0 {
		oldest = q.now().Add(-maxAge).UnixMilli()
	}

	var tt TravelTime
	var fetchedAt int64
	err := q.db.QueryRowContext(ctx, q.rebind(getTravelTime), originKey, stopID, oldest).
		Scan(&tt.OriginKey, &tt.StopID, &tt.DistanceMiles, &tt.DurationSeconds, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TravelTime{}, ErrNotFound
	}
	if err != nil {
		return TravelTime{}, fmt.Errorf("querying travel time: %w", err)
	}
	tt.FetchedAt = time.UnixMilli(fetchedAt)
	return tt, nil
}

const upsertTravelTime = `
INSERT INTO travel_times (origin_key, stop_id, distance_miles, duration_seconds, fetched_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (origin_key, stop_id) DO UPDATE SET
    distance_miles = excluded.distance_miles,
    duration_seconds = excluded.duration_seconds,
    fetched_at = excluded.fetched_at`

func (q *Queries) UpsertTravelTime(ctx context.Context, tt TravelTime) error {
	if tt.FetchedAt.IsZero() {
		tt.FetchedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, q.rebind(upsertTravelTime),
		tt.OriginKey, tt.StopID, tt.DistanceMiles, tt.DurationSeconds, tt.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving travel time: %w", err)
	}
	return nil
}

const pruneTravelTimes = `DELETE FROM travel_times WHERE fetched_at < ?`

// PruneTravelTimes deletes estimates older than maxAge and reports how many were removed.
func (q *Queries) PruneTravelTimes(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(pruneTravelTimes), q.now().Add(-maxAge).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning travel times: %w", err)
	}
	return res.RowsAffected()
}

// CalibrationSample compares straight-line and walking distance from one
// sample location to one stop.
type CalibrationSample struct {
	ID             string    `json:"id"`
	RunID          string    `json:"runId"`
	SourceLat      float64   `json:"sourceLat"`
	SourceLon      float64   `json:"sourceLon"`
	StopID         string    `json:"stopId"`
	DestinationLat float64   `json:"destinationLat"`
	DestinationLon float64   `json:"destinationLon"`
	HaversineKm    float64   `json:"haversineDistance"`
	WalkingMiles   float64   `json:"mapboxDistance"`
	WalkingSeconds float64   `json:"mapboxDuration"`
	CreatedAt      time.Time `json:"createdAt"`
}

const insertCalibrationSample = `
INSERT INTO calibration_samples (
    id, run_id, source_lat, source_lon, stop_id, destination_lat, destination_lon,
    haversine_km, walking_miles, walking_seconds, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertCalibrationSample stores s, assigning an id and timestamp when unset.
func (q *Queries) InsertCalibrationSample(ctx context.Context, s CalibrationSample) (CalibrationSample, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = q.now()
	}
	_, err := q.db.ExecContext(ctx, q.rebind(insertCalibrationSample),
		s.ID, s.RunID, s.SourceLat, s.SourceLon, s.StopID, s.DestinationLat, s.DestinationLon,
		s.HaversineKm, s.WalkingMiles, s.WalkingSeconds, s.CreatedAt.UnixMilli())
	if err != nil {
		return CalibrationSample{}, fmt.Errorf("inserting calibration sample: %w", err)
	}
	return s, nil
}

const listCalibrationSamples = `
SELECT id, run_id, source_lat, source_lon, stop_id, destination_lat, destination_lon,
    haversine_km, walking_miles, walking_seconds, created_at
FROM calibration_samples`

// ListCalibrationSamples returns samples oldest first. An empty runID lists
// every run; a limit of zero or less means no limit.
func (q *Queries) ListCalibrationSamples(ctx context.Context, runID string, limit int) (samples []CalibrationSample, err error) {
	query := listCalibrationSamples
	var args []interface{}
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY created_at, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing calibration samples: %w", err)
	}
	defer logging.HandleDeferredError(&err, rows.Close, logging.FromContext(ctx), "close_calibration_rows")

	for rows.Next() {
		var s CalibrationSample
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.RunID, &s.SourceLat, &s.SourceLon, &s.StopID,
			&s.DestinationLat, &s.DestinationLon, &s.HaversineKm, &s.WalkingMiles,
			&s.WalkingSeconds, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning calibration sample: %w", err)
		}
		s.CreatedAt = time.UnixMilli(createdAt)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// CalibrationSummary aggregates every stored sample.
type CalibrationSummary struct {
	Samples           int     `json:"samples"`
	Runs              int     `json:"runs"`
	AvgHaversineKm    float64 `json:"avgHaversineKm"`
	AvgWalkingMiles   float64 `json:"avgWalkingMiles"`
	AvgWalkingSeconds float64 `json:"avgWalkingSeconds"`
	// DetourFactor is the mean ratio of walking distance to straight-line distance.
	DetourFactor float64 `json:"detourFactor"`
	// SecondsPerMile is total walking time over total walking distance.
	SecondsPerMile float64 `json:"secondsPerMile"`
}

const calibrationSummary = `
SELECT
    COUNT(*),
    COUNT(DISTINCT run_id),
    AVG(haversine_km),
    AVG(walking_miles),
    AVG(walking_seconds),
    AVG(CASE WHEN haversine_km > 0 THEN walking_miles * 1.609344 / haversine_km END),
    SUM(walking_seconds),
    SUM(walking_miles)
FROM calibration_samples`

func (q *Queries) CalibrationSummary(ctx context.Context) (CalibrationSummary, error) {
	var s CalibrationSummary
	var avgKm, avgMiles, avgSeconds, detour, sumSeconds, sumMiles sql.NullFloat64
	err := q.db.QueryRowContext(ctx, q.rebind(calibrationSummary)).
		Scan(&s.Samples, &s.Runs, &avgKm, &avgMiles, &avgSeconds, &detour, &sumSeconds, &sumMiles)
	if err != nil {
		return CalibrationSummary{}, fmt.Errorf("summarizing calibration samples: %w", err)
	}
	s.AvgHaversineKm = avgKm.Float64
	s.AvgWalkingMiles = avgMiles.Float64
	s.AvgWalkingSeconds = avgSeconds.Float64
	s.DetourFactor = detour.Float64
	if sumMiles.Float64 > 0 {
		s.SecondsPerMile = sumSeconds.Float64 / sumMiles.Float64
	}
	return s, nil
}
