package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.Token == "" && cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	c := New(cfg, opts...)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestClient_GetMovie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","runtime":139,"release_date":"1999-10-15","genres":[{"id":18,"name":"Drama"}],"vote_average":8.4,"vote_count":26000}`))
	}, Config{})

	got, err := c.GetMovie(context.Background(), 550)

	require.NoError(t, err)
	assert.Equal(t, 550, got.ID)
	assert.Equal(t, "Fight Club", got.Title)
	assert.Equal(t, 139, got.Runtime)
	assert.Equal(t, []Genre{{ID: 18, Name: "Drama"}}, got.Genres)
	assert.InDelta(t, 8.4, got.VoteAverage, 0.001)
}

func TestClient_BearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer v4-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"genres":[{"id":28,"name":"Action"}]}`))
	}, Config{Token: "v4-token"})

	genres, err := c.Genres(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}}, genres)
}

func TestClient_SearchAndPopular(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/movie":
			assert.Equal(t, "matrix", r.URL.Query().Get("query"))
			assert.Equal(t, "2", r.URL.Query().Get("page"))
		case "/movie/popular":
			assert.Equal(t, "1", r.URL.Query().Get("page"))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix","genre_ids":[28]}],"total_pages":1,"total_results":1}`))
	}, Config{})

	res, err := c.Search(context.Background(), "matrix", 2)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, 603, res.Results[0].ID)

	popular, err := c.Popular(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{28}, popular.Results[0].GenreIDs)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"title":"Recovered"}`))
	}, Config{MaxRetries: 3})

	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	got, err := c.GetMovie(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "Recovered", got.Title)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestClient_RetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, Config{MaxRetries: 3})

	_, err := c.GetMovie(context.Background(), 1)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, Config{MaxRetries: 3})

	_, err := c.GetMovie(context.Background(), 999)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}, Config{MaxRetries: 3})

	_, err := c.GetMovie(context.Background(), 1)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, se.Body, "Invalid API key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MissingCredentials(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := c.GetMovie(context.Background(), 1)

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_CancelledContextStopsRetry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, Config{MaxRetries: 3})
	c.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetMovie(ctx, 1)

	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	log := zap.NewNop().Sugar()
	cb := NewCircuitBreaker("tmdb-test", 2, time.Minute, log)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{MaxRetries: 0}, WithCircuitBreaker(cb), WithLogger(log))

	_, err := c.GetMovie(context.Background(), 1)
	require.Error(t, err)
	_, err = c.GetMovie(context.Background(), 1)
	require.Error(t, err)

	_, err = c.GetMovie(context.Background(), 1)

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	cb := NewCircuitBreaker("tmdb-test", 1, time.Minute, zap.NewNop().Sugar())
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, Config{}, WithCircuitBreaker(cb))

	for i := 0; i < 3; i++ {
		_, err := c.GetMovie(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestClient_RateLimitOption(t *testing.T) {
	c := New(Config{}, WithRateLimit(5))
	require.NotNil(t, c.Limiter)
	assert.InDelta(t, 5.0, float64(c.Limiter.Limit()), 0.001)

	c = New(Config{}, WithRateLimit(0))
	assert.Nil(t, c.Limiter)
}
