package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"walktimes.dev/internal/logging"
)

// ErrUpstream matches every failure reported by Fetcher after retries are exhausted.
var ErrUpstream = errors.New("upstream request failed")

// UpstreamError describes a failed upstream request. URL never carries the query string,
// which holds API keys.
type UpstreamError struct {
	Service    string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: GET %s: unexpected status %d", e.Service, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: GET %s: %v", e.Service, e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// UpstreamObserver receives one observation per upstream attempt.
type UpstreamObserver interface {
	ObserveUpstream(service, outcome string, duration time.Duration)
}

// Fetcher performs GET requests with bounded exponential backoff.
type Fetcher struct {
	Client         *http.Client
	Service        string
	Header         http.Header
	MaxRetries     uint64
	InitialBackoff time.Duration
	Observer       UpstreamObserver
}

// NewFetcher returns a Fetcher with the defaults used for every upstream service.
func NewFetcher(service string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{
		Client:         client,
		Service:        service,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
	}
}

// Get returns the response body of a successful (2xx) GET of rawURL.
// Client errors other than 429 are not retried.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	redacted := RedactURL(rawURL)
	logger := logging.FromContext(ctx).With(
		slog.String("component", "upstream"),
		slog.String("service", f.Service))

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		start := time.Now()
		b, status, err := f.do(ctx, rawURL, logger)
		outcome := "ok"
		defer func() {
			if f.Observer != nil {
				f.Observer.ObserveUpstream(f.Service, outcome, time.Since(start))
			}
		}()

		if err != nil {
			outcome = "error"
			if ctx.Err() != nil {
				return backoff.Permanent(&UpstreamError{Service: f.Service, URL: redacted, Err: ctx.Err()})
			}
			return &UpstreamError{Service: f.Service, URL: redacted, Err: err}
		}
		if status < 200 || status > 299 {
			outcome = fmt.Sprintf("status_%d", status)
			upErr := &UpstreamError{Service: f.Service, URL: redacted, StatusCode: status}
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return backoff.Permanent(upErr)
			}
			return upErr
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	if f.InitialBackoff > 0 {
		policy.InitialInterval = f.InitialBackoff
	}
	notify := func(err error, wait time.Duration) {
		logging.LogError(logger, "upstream request failed, retrying", err,
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, f.MaxRetries), ctx), notify)
	if err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			return nil, upErr
		}
		return nil, &UpstreamError{Service: f.Service, URL: redacted, Err: err}
	}
	return body, nil
}

// GetJSON decodes the body of a successful GET of rawURL into out.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, out any) error {
	b, err := f.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", f.Service, err)
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, logger *slog.Logger) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(err)
	}
	for key, values := range f.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "http_response_body")

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return b, resp.StatusCode, nil
}

// RedactURL drops the query string and credentials, which carry API keys.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
