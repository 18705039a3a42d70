package movie

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinerate/errs"
	"cinerate/pkg/logger"
	"cinerate/pkg/paging"
	"cinerate/tmdb"

	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, m Movie) (Movie, error)
	Get(ctx context.Context, id int64) (Movie, error)
	List(ctx context.Context, f Filter) (paging.Page[Movie], error)
	Search(ctx context.Context, query string, limit int) ([]Movie, error)
	Update(ctx context.Context, id int64, p Patch) (Movie, error)
	Delete(ctx context.Context, id int64) error
	RefreshRatingStats(ctx context.Context, id int64) (Movie, error)
	ImportFromTMDB(ctx context.Context, tmdbID int) (Movie, error)
	SearchTMDB(ctx context.Context, query string, page int) (tmdb.MoviePage, error)
	TMDBGenres(ctx context.Context) ([]tmdb.Genre, error)
	StaleMovies(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]Movie, error)
}

type Repository interface {
	Create(ctx context.Context, m Movie) (Movie, error)
	GetByID(ctx context.Context, id int64) (Movie, error)
	GetByTMDBID(ctx context.Context, tmdbID int) (Movie, error)
	List(ctx context.Context, f Filter) ([]Movie, int64, error)
	Search(ctx context.Context, query string, limit int) ([]Movie, error)
	Update(ctx context.Context, m Movie) (Movie, error)
	Delete(ctx context.Context, id int64) error
	RefreshRatingStats(ctx context.Context, id int64) (Movie, error)
	UpsertByTMDBID(ctx context.Context, m Movie) (Movie, error)
	ListStale(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]Movie, error)
}

// MetadataSource is the external movie catalogue.
type MetadataSource interface {
	GetMovie(ctx context.Context, id int) (tmdb.MovieDetails, error)
	Search(ctx context.Context, query string, page int) (tmdb.MoviePage, error)
	Genres(ctx context.Context) ([]tmdb.Genre, error)
}

type Usecase struct {
	r        Repository
	metadata MetadataSource
	cache    Cache
	cacheTTL time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time
}

type Option func(*Usecase)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(uc *Usecase) {
		uc.cache = c
		uc.cacheTTL = ttl
	}
}

func WithMetadataSource(s MetadataSource) Option {
	return func(uc *Usecase) { uc.metadata = s }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(uc *Usecase) { uc.log = log }
}

func NewUsecase(r Repository, opts ...Option) *Usecase {
	uc := &Usecase{
		r:        r,
		cache:    NopCache{},
		cacheTTL: 5 * time.Minute,
		log:      logger.NOOPLogger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

func (uc *Usecase) Create(ctx context.Context, m Movie) (Movie, error) {
	m.Title = strings.TrimSpace(m.Title)
	m.Genres = normalizeGenres(m.Genres)
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	if m.TMDBID != nil {
		if err := uc.ensureTMDBIDFree(ctx, *m.TMDBID, 0); err != nil {
			return Movie{}, err
		}
	}

	created, err := uc.r.Create(ctx, m)
	if err != nil {
		return Movie{}, err
	}
	uc.invalidateLists(ctx)
	uc.log.Infow("movie created", "movie_id", created.ID, "title", created.Title)
	return created, nil
}

func (uc *Usecase) Get(ctx context.Context, id int64) (Movie, error) {
	if id <= 0 {
		return Movie{}, ErrInvalidID
	}

	key := CacheKey(id)
	var cached Movie
	if uc.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	m, err := uc.r.GetByID(ctx, id)
	if err != nil {
		return Movie{}, err
	}
	uc.cacheSet(ctx, key, m)
	return m, nil
}

func (uc *Usecase) List(ctx context.Context, f Filter) (paging.Page[Movie], error) {
	f, err := f.Normalize()
	if err != nil {
		return paging.Page[Movie]{}, err
	}

	key := ListCacheKey(f)
	var cached paging.Page[Movie]
	if uc.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	movies, total, err := uc.r.List(ctx, f)
	if err != nil {
		return paging.Page[Movie]{}, err
	}
	page := paging.NewPage(movies, f.Params(), total)
	uc.cacheSet(ctx, key, page)
	return page, nil
}

func (uc *Usecase) Search(ctx context.Context, query string, limit int) ([]Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	return uc.r.Search(ctx, query, paging.New(1, limit).Limit)
}

func (uc *Usecase) Update(ctx context.Context, id int64, p Patch) (Movie, error) {
	if id <= 0 {
		return Movie{}, ErrInvalidID
	}
	existing, err := uc.r.GetByID(ctx, id)
	if err != nil {
		return Movie{}, err
	}

	updated := p.Apply(existing)
	if err := updated.Validate(); err != nil {
		return Movie{}, err
	}
	if updated.TMDBID != nil && (existing.TMDBID == nil || *existing.TMDBID != *updated.TMDBID) {
		if err := uc.ensureTMDBIDFree(ctx, *updated.TMDBID, id); err != nil {
			return Movie{}, err
		}
	}

	saved, err := uc.r.Update(ctx, updated)
	if err != nil {
		return Movie{}, err
	}
	uc.invalidate(ctx, id)
	uc.log.Infow("movie updated", "movie_id", id)
	return saved, nil
}

func (uc *Usecase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := uc.r.Delete(ctx, id); err != nil {
		return err
	}
	uc.invalidate(ctx, id)
	uc.log.Infow("movie deleted", "movie_id", id)
	return nil
}

// RefreshRatingStats recomputes the rating rollup stored on the movie row.
func (uc *Usecase) RefreshRatingStats(ctx context.Context, id int64) (Movie, error) {
	if id <= 0 {
		return Movie{}, ErrInvalidID
	}
	m, err := uc.r.RefreshRatingStats(ctx, id)
	if err != nil {
		return Movie{}, err
	}
	uc.invalidate(ctx, id)
	return m, nil
}

func (uc *Usecase) ImportFromTMDB(ctx context.Context, tmdbID int) (Movie, error) {
	if uc.metadata == nil {
		return Movie{}, ErrTMDBNotConfigured
	}
	if tmdbID <= 0 {
		return Movie{}, errs.Errorf(errs.EINVALID, "movie: invalid tmdb id")
	}

	details, err := uc.metadata.GetMovie(ctx, tmdbID)
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			return Movie{}, ErrTMDBNotFound
		}
		return Movie{}, fmt.Errorf("fetch tmdb movie %d: %w", tmdbID, err)
	}

	m := fromTMDB(details)
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	syncedAt := uc.now()
	m.SyncedAt = &syncedAt

	saved, err := uc.r.UpsertByTMDBID(ctx, m)
	if err != nil {
		return Movie{}, err
	}
	uc.invalidate(ctx, saved.ID)
	uc.log.Debugw("movie imported from tmdb", "movie_id", saved.ID, "tmdb_id", tmdbID)
	return saved, nil
}

func (uc *Usecase) SearchTMDB(ctx context.Context, query string, page int) (tmdb.MoviePage, error) {
	if uc.metadata == nil {
		return tmdb.MoviePage{}, ErrTMDBNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return tmdb.MoviePage{}, ErrInvalidQuery
	}
	res, err := uc.metadata.Search(ctx, query, page)
	if err != nil {
		return tmdb.MoviePage{}, fmt.Errorf("search tmdb: %w", err)
	}
	if res.Results == nil {
		res.Results = []tmdb.MovieSummary{}
	}
	return res, nil
}

// TMDBGenres lists the genre vocabulary used by TMDB. The list is cached
// since it changes rarely.
func (uc *Usecase) TMDBGenres(ctx context.Context) ([]tmdb.Genre, error) {
	if uc.metadata == nil {
		return nil, ErrTMDBNotConfigured
	}

	var cached []tmdb.Genre
	if uc.cacheGet(ctx, TMDBGenresCacheKey, &cached) {
		return cached, nil
	}

	genres, err := uc.metadata.Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tmdb genres: %w", err)
	}
	if genres == nil {
		genres = []tmdb.Genre{}
	}
	uc.cacheSet(ctx, TMDBGenresCacheKey, genres)
	return genres, nil
}

// StaleMovies returns movies with a TMDB id that were last synced before syncedBefore,
// ordered by id and starting after afterID.
func (uc *Usecase) StaleMovies(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]Movie, error) {
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	return uc.r.ListStale(ctx, syncedBefore, afterID, limit)
}

func (uc *Usecase) ensureTMDBIDFree(ctx context.Context, tmdbID int, selfID int64) error {
	existing, err := uc.r.GetByTMDBID(ctx, tmdbID)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrTMDBIDTaken
	}
	return nil
}

func (uc *Usecase) cacheGet(ctx context.Context, key string, dest any) bool {
	ok, err := uc.cache.Get(ctx, key, dest)
	if err != nil {
		uc.log.Warnw("cache read failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (uc *Usecase) cacheSet(ctx context.Context, key string, value any) {
	if err := uc.cache.Set(ctx, key, value, uc.cacheTTL); err != nil {
		uc.log.Warnw("cache write failed", "key", key, "error", err)
	}
}

func (uc *Usecase) invalidate(ctx context.Context, id int64) {
	if err := uc.cache.Delete(ctx, CacheKey(id), StatsCacheKey(id)); err != nil {
		uc.log.Warnw("cache invalidation failed", "movie_id", id, "error", err)
	}
	uc.invalidateLists(ctx)
}

func (uc *Usecase) invalidateLists(ctx context.Context) {
	if err := uc.cache.DeletePrefix(ctx, ListCachePrefix); err != nil {
		uc.log.Warnw("cache invalidation failed", "prefix", ListCachePrefix, "error", err)
	}
}

func fromTMDB(d tmdb.MovieDetails) Movie {
	tmdbID := d.ID
	m := Movie{
		TMDBID:           &tmdbID,
		Title:            strings.TrimSpace(d.Title),
		OriginalTitle:    d.OriginalTitle,
		Overview:         d.Overview,
		Tagline:          d.Tagline,
		Runtime:          d.Runtime,
		OriginalLanguage: d.OriginalLanguage,
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		Popularity:       d.Popularity,
		TMDBVoteAverage:  d.VoteAverage,
		TMDBVoteCount:    d.VoteCount,
	}
	if m.Title == "" {
		m.Title = d.OriginalTitle
	}
	if t, err := time.Parse("2006-01-02", d.ReleaseDate); err == nil {
		m.ReleaseDate = &t
	}
	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}
	m.Genres = normalizeGenres(genres)
	return m
}
