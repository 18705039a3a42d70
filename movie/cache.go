package movie

import (
	"context"
	"strconv"
	"time"
)

const (
	ListCachePrefix    = "movies:list:"
	TMDBGenresCacheKey = "tmdb:genres"
)

// Cache is the read-through store used for movie and rating reads.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

func CacheKey(id int64) string {
	return "movie:" + strconv.FormatInt(id, 10)
}

func StatsCacheKey(id int64) string {
	return CacheKey(id) + ":stats"
}

func ListCacheKey(f Filter) string {
	return ListCachePrefix + f.digest()
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) {
	return false, nil
}

func (NopCache) Set(context.Context, string, any, time.Duration) error {
	return nil
}

func (NopCache) Delete(context.Context, ...string) error {
	return nil
}

func (NopCache) DeletePrefix(context.Context, string) error {
	return nil
}
