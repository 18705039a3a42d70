package rating

import (
	"context"
	"strings"
	"time"

	"cinerate/movie"
	"cinerate/pkg/logger"
	"cinerate/pkg/paging"

	"go.uber.org/zap"
)

type Service interface {
	Rate(ctx context.Context, userID string, movieID int64, score int, review string) (Rating, bool, error)
	Get(ctx context.Context, id int64) (Rating, error)
	UserRating(ctx context.Context, userID string, movieID int64) (Rating, error)
	Update(ctx context.Context, id int64, actor Actor, score int, review *string) (Rating, error)
	Delete(ctx context.Context, id int64, actor Actor) error
	MovieStats(ctx context.Context, movieID int64) (Stats, error)
	ListByMovie(ctx context.Context, movieID int64, p paging.Params) (paging.Page[Rating], error)
	ListByUser(ctx context.Context, userID string, p paging.Params) (paging.Page[Rating], error)
}

type Repository interface {
	// Upsert inserts or updates the rating keyed by (user, movie) and reports whether it was inserted.
	Upsert(ctx context.Context, r Rating) (Rating, bool, error)
	GetByID(ctx context.Context, id int64) (Rating, error)
	GetByUserAndMovie(ctx context.Context, userID string, movieID int64) (Rating, error)
	Update(ctx context.Context, r Rating) (Rating, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, movieID int64) (Stats, error)
	ListByMovie(ctx context.Context, movieID int64, p paging.Params) ([]Rating, int64, error)
	ListByUser(ctx context.Context, userID string, p paging.Params) ([]Rating, int64, error)
}

type MovieService interface {
	Get(ctx context.Context, id int64) (movie.Movie, error)
	RefreshRatingStats(ctx context.Context, id int64) (movie.Movie, error)
}

type Usecase struct {
	r        Repository
	movies   MovieService
	cache    movie.Cache
	cacheTTL time.Duration
	log      *zap.SugaredLogger
}

type Option func(*Usecase)

func WithCache(c movie.Cache, ttl time.Duration) Option {
	return func(uc *Usecase) {
		uc.cache = c
		uc.cacheTTL = ttl
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(uc *Usecase) { uc.log = log }
}

func NewUsecase(r Repository, movies MovieService, opts ...Option) *Usecase {
	uc := &Usecase{
		r:        r,
		movies:   movies,
		cache:    movie.NopCache{},
		cacheTTL: 5 * time.Minute,
		log:      logger.NOOPLogger,
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// Rate creates the caller's rating for a movie or replaces the existing one.
func (uc *Usecase) Rate(ctx context.Context, userID string, movieID int64, score int, review string) (Rating, bool, error) {
	r := Rating{UserID: userID, MovieID: movieID, Score: score, Review: strings.TrimSpace(review)}
	if strings.TrimSpace(userID) == "" {
		return Rating{}, false, ErrInvalidID
	}
	if err := r.Validate(); err != nil {
		return Rating{}, false, err
	}
	if _, err := uc.movies.Get(ctx, movieID); err != nil {
		return Rating{}, false, err
	}

	saved, created, err := uc.r.Upsert(ctx, r)
	if err != nil {
		return Rating{}, false, err
	}
	uc.refreshStats(ctx, movieID)
	uc.log.Infow("movie rated", "rating_id", saved.ID, "movie_id", movieID, "user_id", userID, "score", score, "created", created)
	return saved, created, nil
}

func (uc *Usecase) Get(ctx context.Context, id int64) (Rating, error) {
	if id <= 0 {
		return Rating{}, ErrInvalidID
	}
	return uc.r.GetByID(ctx, id)
}

func (uc *Usecase) UserRating(ctx context.Context, userID string, movieID int64) (Rating, error) {
	if strings.TrimSpace(userID) == "" || movieID <= 0 {
		return Rating{}, ErrInvalidID
	}
	return uc.r.GetByUserAndMovie(ctx, userID, movieID)
}

// Update changes score and optionally review. Only the author may update.
func (uc *Usecase) Update(ctx context.Context, id int64, actor Actor, score int, review *string) (Rating, error) {
	existing, err := uc.Get(ctx, id)
	if err != nil {
		return Rating{}, err
	}
	if existing.UserID != actor.UserID {
		return Rating{}, ErrForbidden
	}

	updated := existing
	updated.Score = score
	if review != nil {
		updated.Review = strings.TrimSpace(*review)
	}
	if err := updated.Validate(); err != nil {
		return Rating{}, err
	}

	saved, err := uc.r.Update(ctx, updated)
	if err != nil {
		return Rating{}, err
	}
	uc.refreshStats(ctx, existing.MovieID)
	uc.log.Infow("rating updated", "rating_id", id, "movie_id", existing.MovieID)
	return saved, nil
}

// Delete removes a rating. Its author and admins may delete.
func (uc *Usecase) Delete(ctx context.Context, id int64, actor Actor) error {
	existing, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != actor.UserID && !actor.Admin {
		return ErrForbidden
	}
	if err := uc.r.Delete(ctx, id); err != nil {
		return err
	}
	uc.refreshStats(ctx, existing.MovieID)
	uc.log.Infow("rating deleted", "rating_id", id, "movie_id", existing.MovieID, "by", actor.UserID)
	return nil
}

func (uc *Usecase) MovieStats(ctx context.Context, movieID int64) (Stats, error) {
	if _, err := uc.movies.Get(ctx, movieID); err != nil {
		return Stats{}, err
	}

	key := movie.StatsCacheKey(movieID)
	var cached Stats
	ok, err := uc.cache.Get(ctx, key, &cached)
	if err != nil {
		uc.log.Warnw("cache read failed", "key", key, "error", err)
	}
	if ok {
		return cached, nil
	}

	stats, err := uc.r.Stats(ctx, movieID)
	if err != nil {
		return Stats{}, err
	}
	if err := uc.cache.Set(ctx, key, stats, uc.cacheTTL); err != nil {
		uc.log.Warnw("cache write failed", "key", key, "error", err)
	}
	return stats, nil
}

func (uc *Usecase) ListByMovie(ctx context.Context, movieID int64, p paging.Params) (paging.Page[Rating], error) {
	if _, err := uc.movies.Get(ctx, movieID); err != nil {
		return paging.Page[Rating]{}, err
	}
	p = paging.New(p.Page, p.Limit)
	ratings, total, err := uc.r.ListByMovie(ctx, movieID, p)
	if err != nil {
		return paging.Page[Rating]{}, err
	}
	return paging.NewPage(ratings, p, total), nil
}

func (uc *Usecase) ListByUser(ctx context.Context, userID string, p paging.Params) (paging.Page[Rating], error) {
	if strings.TrimSpace(userID) == "" {
		return paging.Page[Rating]{}, ErrInvalidID
	}
	p = paging.New(p.Page, p.Limit)
	ratings, total, err := uc.r.ListByUser(ctx, userID, p)
	if err != nil {
		return paging.Page[Rating]{}, err
	}
	return paging.NewPage(ratings, p, total), nil
}

// refreshStats keeps the rollup on the movie in sync. A failure leaves the
// rating write in place and is only logged; the next write recomputes it.
func (uc *Usecase) refreshStats(ctx context.Context, movieID int64) {
	if _, err := uc.movies.RefreshRatingStats(ctx, movieID); err != nil {
		uc.log.Errorw("refresh rating stats failed", "movie_id", movieID, "error", err)
	}
}
