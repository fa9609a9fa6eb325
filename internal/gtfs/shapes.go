package gtfs

import (
	"github.com/jamespfennell/gtfs"
	"github.com/twpayne/go-polyline"
	"walktimes.dev/internal/geo"
)

// regionCenter is the midpoint of the bounding box of stops.
func regionCenter(stops []*gtfs.Stop) geo.Coordinate {
	var minLat, maxLat, minLon, maxLon float64
	first := true
	for _, stop := range stops {
		lat, lon := *stop.Latitude, *stop.Longitude
		if first {
			minLat, maxLat, minLon, maxLon = lat, lat, lon, lon
			first = false
			continue
		}
		minLat = min(minLat, lat)
		maxLat = max(maxLat, lat)
		minLon = min(minLon, lon)
		maxLon = max(maxLon, lon)
	}
	return geo.Coordinate{Latitude: (minLat + maxLat) / 2, Longitude: (minLon + maxLon) / 2}
}

// encodeShape renders shape points as an encoded polyline at precision 5.
func encodeShape(shape *gtfs.Shape) string {
	coords := make([][]float64, 0, len(shape.Points))
	for _, point := range shape.Points {
		coords = append(coords, []float64{point.Latitude, point.Longitude})
	}
	return string(polyline.EncodeCoords(coords))
}
