package mbta

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/utils"
)

// ErrUpstream matches any failed MBTA request after retries.
var ErrUpstream = utils.ErrUpstream

const (
	DefaultBaseURL    = "https://api-v3.mbta.com"
	DefaultRadius     = 0.005
	DefaultStopRadius = 0.01
	DefaultRouteTypes = "0,1,2,3"
)

// predictionIncludes pulls in everything grouping and the map view need in one request.
var predictionIncludes = []string{
	"stop",
	"route",
	"trip",
	"vehicle",
	"route.route_patterns.representative_trip.shape",
}

type Config struct {
	BaseURL string
	APIKey  string
	// Radius is in degrees, as accepted by filter[radius].
	Radius     float64
	RouteTypes string
	HTTPClient *http.Client
	Observer   utils.UpstreamObserver
}

// Client talks to the MBTA v3 JSON:API.
type Client struct {
	baseURL    string
	apiKey     string
	radius     float64
	routeTypes string
	fetcher    *utils.Fetcher
}

func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		radius:     cfg.Radius,
		routeTypes: cfg.RouteTypes,
		fetcher:    utils.NewFetcher("mbta", cfg.HTTPClient),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.radius <= 0 {
		c.radius = DefaultRadius
	}
	if c.routeTypes == "" {
		c.routeTypes = DefaultRouteTypes
	}
	c.fetcher.Header = http.Header{"Accept": []string{"application/vnd.api+json"}}
	c.fetcher.Observer = cfg.Observer
	return c
}

// Name identifies the source in boards and logs.
func (c *Client) Name() string { return "mbta" }

func (c *Client) locationQuery(coord geo.Coordinate, radius float64) url.Values {
	q := url.Values{}
	q.Set("filter[latitude]", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	q.Set("filter[longitude]", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	q.Set("filter[radius]", strconv.FormatFloat(radius, 'f', -1, 64))
	q.Set("filter[route_type]", c.routeTypes)
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	return q
}

// PredictionsURL builds the /predictions request for coord.
func (c *Client) PredictionsURL(coord geo.Coordinate) string {
	q := c.locationQuery(coord, c.radius)
	q.Set("include", strings.Join(predictionIncludes, ","))
	q.Set("fields[prediction]", "arrival_time,departure_time,arrival_uncertainty,departure_uncertainty,direction_id,status")
	q.Set("fields[route]", "text_color,short_name,long_name,color")
	q.Set("fields[stop]", "name,longitude,latitude")
	q.Set("fields[trip]", "headsign")
	return c.baseURL + "/predictions?" + q.Encode()
}

// StopsURL builds the /stops request for coord within radius degrees.
func (c *Client) StopsURL(coord geo.Coordinate, radius float64) string {
	if radius <= 0 {
		radius = DefaultStopRadius
	}
	q := c.locationQuery(coord, radius)
	q.Set("fields[stop]", "name,longitude,latitude")
	return c.baseURL + "/stops?" + q.Encode()
}

// Predictions fetches predictions near coord with their included records.
func (c *Client) Predictions(ctx context.Context, coord geo.Coordinate) (*Payload, error) {
	var payload Payload
	if err := c.fetcher.GetJSON(ctx, c.PredictionsURL(coord), &payload); err != nil {
		return nil, fmt.Errorf("fetching predictions: %w", err)
	}
	return &payload, nil
}

// StopsNear lists stops within radius degrees of coord.
func (c *Client) StopsNear(ctx context.Context, coord geo.Coordinate, radius float64) ([]Stop, error) {
	var body struct {
		Data []Stop `json:"data"`
	}
	if err := c.fetcher.GetJSON(ctx, c.StopsURL(coord, radius), &body); err != nil {
		return nil, fmt.Errorf("fetching stops: %w", err)
	}
	return body.Data, nil
}
