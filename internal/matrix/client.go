// Package matrix fetches walking distance and duration from a rider to a set
// of stops using the Mapbox Directions Matrix API.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"walktimes.dev/internal/geo"
	"walktimes.dev/internal/utils"
)

const (
	DefaultBaseURL = "https://api.mapbox.com"
	DefaultProfile = "mapbox/walking"
)

var (
	// ErrUpstream matches any failed matrix request after retries.
	ErrUpstream = utils.ErrUpstream
	// ErrMatrixCode is returned when the service answers with a code other than "Ok".
	ErrMatrixCode = errors.New("matrix service returned an error code")
)

// Response is the matrix document for one source. Null cells decode as nil.
type Response struct {
	Code      string       `json:"code"`
	Message   string       `json:"message,omitempty"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// cell returns row 0, column i, or nil when absent.
func cell(rows [][]*float64, i int) *float64 {
	if len(rows) == 0 || i < 0 || i >= len(rows[0]) {
		return nil
	}
	return rows[0][i]
}

type ClientConfig struct {
	BaseURL    string
	Token      string
	Profile    string
	HTTPClient *http.Client
	Observer   utils.UpstreamObserver
}

type Client struct {
	baseURL string
	token   string
	profile string
	fetcher *utils.Fetcher
}

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		profile: strings.Trim(cfg.Profile, "/"),
		fetcher: utils.NewFetcher("mapbox", cfg.HTTPClient),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.profile == "" {
		c.profile = DefaultProfile
	}
	c.fetcher.Observer = cfg.Observer
	return c
}

func formatWaypoint(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

// URL builds the request with source as waypoint 0 followed by destinations in order.
func (c *Client) URL(source geo.Coordinate, destinations []geo.Coordinate) string {
	waypoints := make([]string, 0, len(destinations)+1)
	waypoints = append(waypoints, formatWaypoint(source))
	for _, d := range destinations {
		waypoints = append(waypoints, formatWaypoint(d))
	}

	q := url.Values{}
	q.Set("sources", "0")
	q.Set("annotations", "distance,duration")
	q.Set("access_token", c.token)
	return fmt.Sprintf("%s/directions-matrix/v1/%s/%s?%s", c.baseURL, c.profile, strings.Join(waypoints, ";"), q.Encode())
}

// Fetch issues exactly one matrix request. It does not enforce the waypoint limit.
func (c *Client) Fetch(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) (*Response, error) {
	var resp Response
	if err := c.fetcher.GetJSON(ctx, c.URL(source, destinations), &resp); err != nil {
		return nil, fmt.Errorf("fetching walking matrix: %w", err)
	}
	if resp.Code != "" && resp.Code != "Ok" {
		return nil, fmt.Errorf("%w: %s %s", ErrMatrixCode, resp.Code, resp.Message)
	}
	return &resp, nil
}
