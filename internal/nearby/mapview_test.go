package nearby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapView(t *testing.T) {
	svc := NewService(&fakeSource{payload: loadFixture(t)}, nil, Options{})

	view, err := svc.MapView(context.Background(), rider, Padding{Bottom: BottomPadding(0.95, 800)})
	require.NoError(t, err)

	assert.Equal(t, rider, view.Center)
	assert.Equal(t, DefaultZoom, view.Zoom)
	assert.Equal(t, 400.0, view.Padding.Bottom)

	require.Len(t, view.Markers, 4)
	assert.Equal(t, MarkerStop, view.Markers[0].Kind)
	assert.Equal(t, "stop-far", view.Markers[0].ID)
	assert.Equal(t, MarkerVehicle, view.Markers[2].Kind)
	require.NotNil(t, view.Markers[2].Bearing)
	last := view.Markers[len(view.Markers)-1]
	assert.Equal(t, MeMarkerID, last.ID)
	assert.Equal(t, rider.Latitude, last.Lat)

	require.Len(t, view.Shapes, 1)
	shape := view.Shapes[0]
	assert.Equal(t, "10", shape.RouteID)
	assert.Equal(t, "FFC72C", shape.Color)
	require.Len(t, shape.Coordinates, 3)
	assert.InDelta(t, -120.2, shape.Coordinates[0][0], 1e-9)
	assert.InDelta(t, 38.5, shape.Coordinates[0][1], 1e-9)
}

func TestMapViewSkipsUndecodableShape(t *testing.T) {
	svc := NewService(&fakeSource{payload: loadFixture(t)}, nil, Options{})
	snap, err := svc.Snapshot(context.Background(), rider)
	require.NoError(t, err)

	require.NotEmpty(t, snap.Index.Shapes)
	for id, shape := range snap.Index.Shapes {
		shape.Attributes.Polyline = "_p~iF~ps|"
		snap.Index.Shapes[id] = shape
	}

	view := BuildMapView(context.Background(), snap, Padding{})
	assert.Empty(t, view.Shapes)
	require.Len(t, view.Markers, 4, "markers survive a bad shape")
	assert.Equal(t, MeMarkerID, view.Markers[3].ID)
}

func TestBottomPadding(t *testing.T) {
	testCases := []struct {
		name   string
		snap   float64
		height float64
		want   float64
	}{
		{name: "low drawer", snap: 0.15, height: 800, want: 120},
		{name: "middle drawer", snap: 0.5, height: 800, want: 400},
		{name: "full drawer is capped", snap: 0.95, height: 800, want: 400},
		{name: "no viewport", snap: 0.5, height: 0, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, BottomPadding(tc.snap, tc.height), 1e-9)
		})
	}
}

func TestDecodeShapeRejectsGarbage(t *testing.T) {
	_, err := DecodeShape("_p~iF~ps|")
	assert.Error(t, err)
}
