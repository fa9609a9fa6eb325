package departures

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"walktimes.dev/internal/mbta"
	"walktimes.dev/internal/models"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func prediction(id, route, trip, stop string, departure string) mbta.Prediction {
	p := mbta.Prediction{
		ID: id,
		Relationships: mbta.PredictionRelationships{
			Route: mbta.One(mbta.KindRoute, route),
			Trip:  mbta.One(mbta.KindTrip, trip),
			Stop:  mbta.One(mbta.KindStop, stop),
		},
	}
	if departure != "" {
		p.Attributes.DepartureTime = strPtr(departure)
	}
	return p
}

func trip(id, pattern string) mbta.Resource {
	return mbta.TripResource(mbta.Trip{
		ID:            id,
		Relationships: mbta.TripRelationships{RoutePattern: mbta.One(mbta.KindRoutePattern, pattern)},
	})
}

func pattern(id string) mbta.Resource {
	return mbta.RoutePatternResource(mbta.RoutePattern{ID: id})
}

func stop(id string, lat, lon float64) mbta.Resource {
	return mbta.StopResource(mbta.Stop{ID: id, Attributes: mbta.StopAttributes{Latitude: lat, Longitude: lon, Name: id}})
}

func loadFixture(t *testing.T) *mbta.Payload {
	t.Helper()
	f, err := os.Open(models.GetFixturePath(t, "predictions.json"))
	require.NoError(t, err)
	defer f.Close()

	payload, err := mbta.DecodePayload(f)
	require.NoError(t, err)
	return payload
}
