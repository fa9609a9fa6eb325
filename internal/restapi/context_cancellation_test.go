package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockedAPI returns an API whose MBTA upstream hangs until the test ends.
func blockedAPI(t *testing.T) *RestAPI {
	t.Helper()
	release := make(chan struct{})
	api := newTestAPI(t, testOptions{
		mbta: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			http.Error(w, "gone", http.StatusNotFound)
		}),
	})
	// Registered after the upstream server so it runs before the server closes.
	t.Cleanup(func() { close(release) })
	return api
}

func TestContextCancellationHandling(t *testing.T) {
	tests := []struct {
		name       string
		ctx        func() (context.Context, context.CancelFunc)
		wantStatus int
		wantBody   bool
	}{
		{
			name: "client gone writes nothing",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantStatus: http.StatusOK,
			wantBody:   false,
		},
		{
			name: "deadline maps to gateway timeout",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), time.Nanosecond)
			},
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := blockedAPI(t)
			ctx, cancel := tt.ctx()
			defer cancel()
			<-ctx.Done()

			req := httptest.NewRequest(http.MethodGet, "/api/where/nearby.json?key=TEST&"+riderQuery, nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			api.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody {
				assert.Contains(t, rec.Body.String(), "upstream timeout")
			} else {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestLongerTimeoutContextHandling(t *testing.T) {
	api := newTestAPI(t, testOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/where/nearby.json?key=TEST&"+riderQuery, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
