package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"walktimes.dev/internal/appconf"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Config{Driver: DriverSQLite, DSN: ":memory:", Env: appconf.Test})
	require.NoError(t, err, "NewClient should succeed")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_ValidConfig(t *testing.T) {
	client := newTestClient(t)

	assert.NotNil(t, client.DB, "Database should be initialized")
	assert.NotNil(t, client.Queries, "Queries should be initialized")
	assert.NoError(t, client.Ping(context.Background()))

	counts, err := client.TableCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"travel_times": 0, "calibration_samples": 0}, counts)
}

func TestNewClient_InvalidConfigHandling(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "file database in test env",
			config:  Config{Driver: DriverSQLite, DSN: "/tmp/invalid_test_db.sqlite", Env: appconf.Test},
			wantErr: "test database must use in-memory storage",
		},
		{
			name:    "unknown driver",
			config:  Config{Driver: "mysql", DSN: ":memory:", Env: appconf.Test},
			wantErr: "unsupported store driver",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.config)
			require.Error(t, err)
			assert.Nil(t, client, "Client should be nil when creation fails")
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMigrationIsRepeatable(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, performDatabaseMigration(context.Background(), client.DB))
}

func TestInMemoryPoolUsesSingleConnection(t *testing.T) {
	client := newTestClient(t)
	assert.Equal(t, 1, client.DB.Stats().MaxOpenConnections)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.TableCounts(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSaveCalibrationRun(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	saved, err := client.SaveCalibrationRun(ctx, []CalibrationSample{
		{RunID: "run-1", StopID: "a", HaversineKm: 0.3, WalkingMiles: 0.25, WalkingSeconds: 300},
		{RunID: "run-1", StopID: "b", HaversineKm: 0.6, WalkingMiles: 0.5, WalkingSeconds: 600},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.NotEmpty(t, saved[0].ID)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)

	listed, err := client.Queries.ListCalibrationSamples(ctx, "run-1", 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["calibration_samples"])
}
