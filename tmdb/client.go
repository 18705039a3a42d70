// Package tmdb is a small client for The Movie Database v3 API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

var (
	ErrNotFound     = errors.New("tmdb: not found")
	ErrUnauthorized = errors.New("tmdb: missing credentials")
)

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: status %d body=%q", e.StatusCode, e.Body)
}

func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type Config struct {
	BaseURL    string
	APIKey     string
	Token      string
	Language   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Config     Config
	Limiter    *rate.Limiter
	CB         *gobreaker.CircuitBreaker
	Log        *zap.SugaredLogger

	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.Log = log }
}

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.Limiter = nil
			return
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	c := &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Config:     cfg,
		Log:        zap.NewNop().Sugar(),
		sleep:      sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewCircuitBreaker trips after threshold consecutive failed requests.
// Not-found and other client errors do not count as failures.
func NewCircuitBreaker(name string, threshold uint32, timeout time.Duration, log *zap.SugaredLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("circuit-breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

func (c *Client) GetMovie(ctx context.Context, id int) (MovieDetails, error) {
	var out MovieDetails
	err := c.get(ctx, "/movie/"+strconv.Itoa(id), nil, &out)
	return out, err
}

func (c *Client) Popular(ctx context.Context, page int) (MoviePage, error) {
	var out MoviePage
	err := c.get(ctx, "/movie/popular", url.Values{"page": {strconv.Itoa(max(page, 1))}}, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, query string, page int) (MoviePage, error) {
	q := url.Values{
		"query":         {query},
		"page":          {strconv.Itoa(max(page, 1))},
		"include_adult": {"false"},
	}
	var out MoviePage
	err := c.get(ctx, "/search/movie", q, &out)
	return out, err
}

func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var out genreList
	if err := c.get(ctx, "/genre/movie/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	if c.Config.Token == "" && c.Config.APIKey == "" {
		return ErrUnauthorized
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("language", c.Config.Language)
	if c.Config.Token == "" {
		query.Set("api_key", c.Config.APIKey)
	}
	endpoint := c.BaseURL + path + "?" + query.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.Config.RetryDelay
			c.Log.Debugw("retrying tmdb request", "path", path, "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}
		err := c.doWithBreaker(ctx, endpoint, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		c.Log.Warnw("tmdb request failed", "path", path, "attempt", attempt, "error", err)
	}
	return lastErr
}

func (c *Client) doWithBreaker(ctx context.Context, endpoint string, dest any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.CB == nil {
		return c.doJSON(ctx, endpoint, dest)
	}
	_, err := c.CB.Execute(func() (interface{}, error) {
		return nil, c.doJSON(ctx, endpoint, dest)
	})
	return err
}

func (c *Client) doJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.Config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &transportError{err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b[:min(len(b), 200)])}
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("tmdb: decode response: %w", err)
	}
	return nil
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "tmdb: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
