package movie_test

import (
	"context"
	"time"

	"cinerate/movie"
	"cinerate/tmdb"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, mv movie.Movie) (movie.Movie, error) {
	args := m.Called(ctx, mv)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (movie.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockRepository) GetByTMDBID(ctx context.Context, tmdbID int) (movie.Movie, error) {
	args := m.Called(ctx, tmdbID)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, f movie.Filter) ([]movie.Movie, int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]movie.Movie), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Search(ctx context.Context, query string, limit int) ([]movie.Movie, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]movie.Movie), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, mv movie.Movie) (movie.Movie, error) {
	args := m.Called(ctx, mv)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) RefreshRatingStats(ctx context.Context, id int64) (movie.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockRepository) UpsertByTMDBID(ctx context.Context, mv movie.Movie) (movie.Movie, error) {
	args := m.Called(ctx, mv)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockRepository) ListStale(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]movie.Movie, error) {
	args := m.Called(ctx, syncedBefore, afterID, limit)
	return args.Get(0).([]movie.Movie), args.Error(1)
}

type MockMetadataSource struct {
	mock.Mock
}

func (m *MockMetadataSource) GetMovie(ctx context.Context, id int) (tmdb.MovieDetails, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(tmdb.MovieDetails), args.Error(1)
}

func (m *MockMetadataSource) Search(ctx context.Context, query string, page int) (tmdb.MoviePage, error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(tmdb.MoviePage), args.Error(1)
}

func (m *MockMetadataSource) Genres(ctx context.Context) ([]tmdb.Genre, error) {
	args := m.Called(ctx)
	return args.Get(0).([]tmdb.Genre), args.Error(1)
}

// memoryCache is a map-backed movie.Cache that records invalidations.
type memoryCache struct {
	items    map[string]any
	deleted  []string
	prefixes []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]any{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := c.items[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *movie.Movie:
		*d = v.(movie.Movie)
	case *[]tmdb.Genre:
		*d = v.([]tmdb.Genre)
	default:
		return false, nil
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.items, k)
	}
	c.deleted = append(c.deleted, keys...)
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.prefixes = append(c.prefixes, prefix)
	return nil
}
