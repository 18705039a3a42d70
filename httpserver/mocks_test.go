package httpserver_test

import (
	"context"
	"time"

	"cinerate/auth"
	"cinerate/movie"
	"cinerate/pkg/paging"
	"cinerate/rating"
	"cinerate/syncjob"
	"cinerate/tmdb"
	"cinerate/user"

	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, u user.User) (user.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (user.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, p paging.Params) (paging.Page[user.User], error) {
	args := m.Called(ctx, p)
	return args.Get(0).(paging.Page[user.User]), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, p user.ProfilePatch) (user.User, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	args := m.Called(ctx, id, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserService) AddToWatchlist(ctx context.Context, userID string, movieID int64) error {
	args := m.Called(ctx, userID, movieID)
	return args.Error(0)
}

func (m *MockUserService) RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error {
	args := m.Called(ctx, userID, movieID)
	return args.Error(0)
}

func (m *MockUserService) Watchlist(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(paging.Page[movie.Movie]), args.Error(1)
}

func (m *MockUserService) AddFavorite(ctx context.Context, userID string, movieID int64) error {
	args := m.Called(ctx, userID, movieID)
	return args.Error(0)
}

func (m *MockUserService) RemoveFavorite(ctx context.Context, userID string, movieID int64) error {
	args := m.Called(ctx, userID, movieID)
	return args.Error(0)
}

func (m *MockUserService) Favorites(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(paging.Page[movie.Movie]), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (auth.TokenPair, error) {
	args := m.Called(ctx, username, email, password)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

type MockMovieService struct {
	mock.Mock
}

func (m *MockMovieService) Create(ctx context.Context, mv movie.Movie) (movie.Movie, error) {
	args := m.Called(ctx, mv)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockMovieService) Get(ctx context.Context, id int64) (movie.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockMovieService) List(ctx context.Context, f movie.Filter) (paging.Page[movie.Movie], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(paging.Page[movie.Movie]), args.Error(1)
}

func (m *MockMovieService) Search(ctx context.Context, query string, limit int) ([]movie.Movie, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]movie.Movie), args.Error(1)
}

func (m *MockMovieService) Update(ctx context.Context, id int64, p movie.Patch) (movie.Movie, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockMovieService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMovieService) RefreshRatingStats(ctx context.Context, id int64) (movie.Movie, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockMovieService) ImportFromTMDB(ctx context.Context, tmdbID int) (movie.Movie, error) {
	args := m.Called(ctx, tmdbID)
	return args.Get(0).(movie.Movie), args.Error(1)
}

func (m *MockMovieService) SearchTMDB(ctx context.Context, query string, page int) (tmdb.MoviePage, error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(tmdb.MoviePage), args.Error(1)
}

func (m *MockMovieService) TMDBGenres(ctx context.Context) ([]tmdb.Genre, error) {
	args := m.Called(ctx)
	return args.Get(0).([]tmdb.Genre), args.Error(1)
}

func (m *MockMovieService) StaleMovies(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]movie.Movie, error) {
	args := m.Called(ctx, syncedBefore, afterID, limit)
	return args.Get(0).([]movie.Movie), args.Error(1)
}

type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) Rate(ctx context.Context, userID string, movieID int64, score int, review string) (rating.Rating, bool, error) {
	args := m.Called(ctx, userID, movieID, score, review)
	return args.Get(0).(rating.Rating), args.Bool(1), args.Error(2)
}

func (m *MockRatingService) Get(ctx context.Context, id int64) (rating.Rating, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(rating.Rating), args.Error(1)
}

func (m *MockRatingService) UserRating(ctx context.Context, userID string, movieID int64) (rating.Rating, error) {
	args := m.Called(ctx, userID, movieID)
	return args.Get(0).(rating.Rating), args.Error(1)
}

func (m *MockRatingService) Update(ctx context.Context, id int64, actor rating.Actor, score int, review *string) (rating.Rating, error) {
	args := m.Called(ctx, id, actor, score, review)
	return args.Get(0).(rating.Rating), args.Error(1)
}

func (m *MockRatingService) Delete(ctx context.Context, id int64, actor rating.Actor) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockRatingService) MovieStats(ctx context.Context, movieID int64) (rating.Stats, error) {
	args := m.Called(ctx, movieID)
	return args.Get(0).(rating.Stats), args.Error(1)
}

func (m *MockRatingService) ListByMovie(ctx context.Context, movieID int64, p paging.Params) (paging.Page[rating.Rating], error) {
	args := m.Called(ctx, movieID, p)
	return args.Get(0).(paging.Page[rating.Rating]), args.Error(1)
}

func (m *MockRatingService) ListByUser(ctx context.Context, userID string, p paging.Params) (paging.Page[rating.Rating], error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(paging.Page[rating.Rating]), args.Error(1)
}

type MockSyncJob struct {
	mock.Mock
}

func (m *MockSyncJob) Trigger() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockSyncJob) Running() bool {
	return m.Called().Bool(0)
}

func (m *MockSyncJob) LastReport() (syncjob.Report, bool) {
	args := m.Called()
	return args.Get(0).(syncjob.Report), args.Bool(1)
}
