package user

import (
	"context"
	"strings"

	"cinerate/errs"
	"cinerate/movie"
	"cinerate/pkg/logger"
	"cinerate/pkg/paging"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, p paging.Params) (paging.Page[User], error)
	UpdateProfile(ctx context.Context, id string, p ProfilePatch) (User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	DeleteUser(ctx context.Context, id string) error

	AddToWatchlist(ctx context.Context, userID string, movieID int64) error
	RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error
	Watchlist(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error)
	AddFavorite(ctx context.Context, userID string, movieID int64) error
	RemoveFavorite(ctx context.Context, userID string, movieID int64) error
	Favorites(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error)
}

type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context, p paging.Params) ([]User, int64, error)
	Update(ctx context.Context, u User) (User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	// Delete removes the user together with their ratings and list entries
	// and returns the ids of the movies the user had rated.
	Delete(ctx context.Context, id string) ([]int64, error)
}

// ListRepository stores the watchlist and favorites associations.
type ListRepository interface {
	AddMovie(ctx context.Context, list List, userID string, movieID int64) error
	RemoveMovie(ctx context.Context, list List, userID string, movieID int64) (bool, error)
	Movies(ctx context.Context, list List, userID string, p paging.Params) ([]movie.Movie, int64, error)
}

type MovieCatalog interface {
	Get(ctx context.Context, id int64) (movie.Movie, error)
	RefreshRatingStats(ctx context.Context, id int64) (movie.Movie, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, plain string) error
}

type Usecase struct {
	r      Repository
	lists  ListRepository
	movies MovieCatalog
	hasher PasswordHasher
	log    *zap.SugaredLogger
}

func NewUsecase(r Repository, lists ListRepository, movies MovieCatalog, h PasswordHasher, log *zap.SugaredLogger) *Usecase {
	if log == nil {
		log = logger.NOOPLogger
	}
	return &Usecase{
		r:      r,
		lists:  lists,
		movies: movies,
		hasher: h,
		log:    log,
	}
}

func (uc *Usecase) Register(ctx context.Context, u User) (User, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	if err := uc.ensureEmailFree(ctx, u.Email, ""); err != nil {
		return User{}, err
	}
	if err := uc.ensureUsernameFree(ctx, u.Username, ""); err != nil {
		return User{}, err
	}

	hashed, err := uc.hasher.Hash(u.Password)
	if err != nil {
		return User{}, err
	}
	u.Password = ""
	u.PasswordHash = hashed

	created, err := uc.r.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	uc.log.Infow("user registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}

func (uc *Usecase) GetUser(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrUserIDRequired
	}
	return uc.r.GetByID(ctx, id)
}

func (uc *Usecase) GetUserByEmail(ctx context.Context, email string) (User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	return uc.r.GetByEmail(ctx, email)
}

func (uc *Usecase) ListUsers(ctx context.Context, p paging.Params) (paging.Page[User], error) {
	p = paging.New(p.Page, p.Limit)
	users, total, err := uc.r.List(ctx, p)
	if err != nil {
		return paging.Page[User]{}, err
	}
	return paging.NewPage(users, p, total), nil
}

func (uc *Usecase) UpdateProfile(ctx context.Context, id string, p ProfilePatch) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrUserIDRequired
	}
	existing, err := uc.r.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	updated := existing
	if p.Username != nil {
		updated.Username = strings.TrimSpace(*p.Username)
		if err := validateUsername(updated.Username); err != nil {
			return User{}, err
		}
		if updated.Username != existing.Username {
			if err := uc.ensureUsernameFree(ctx, updated.Username, id); err != nil {
				return User{}, err
			}
		}
	}
	if p.Email != nil {
		updated.Email = normalizeEmail(*p.Email)
		if err := validateEmail(updated.Email); err != nil {
			return User{}, err
		}
		if updated.Email != existing.Email {
			if err := uc.ensureEmailFree(ctx, updated.Email, id); err != nil {
				return User{}, err
			}
		}
	}
	if updated == existing {
		return existing, nil
	}

	saved, err := uc.r.Update(ctx, updated)
	if err != nil {
		return User{}, err
	}
	uc.log.Infow("user profile updated", "user_id", id)
	return saved, nil
}

func (uc *Usecase) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrUserIDRequired
	}
	if currentPassword == "" {
		return ErrCurrentPasswordInvalid
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	existing, err := uc.r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.hasher.Compare(existing.PasswordHash, currentPassword); err != nil {
		return ErrCurrentPasswordInvalid
	}

	hashed, err := uc.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := uc.r.UpdatePasswordHash(ctx, id, hashed); err != nil {
		return err
	}
	uc.log.Infow("user password changed", "user_id", id)
	return nil
}

func (uc *Usecase) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrUserIDRequired
	}
	rated, err := uc.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	for _, movieID := range rated {
		if _, err := uc.movies.RefreshRatingStats(ctx, movieID); err != nil {
			uc.log.Warnw("refresh rating stats after user delete", "user_id", id, "movie_id", movieID, "error", err)
		}
	}
	uc.log.Infow("user deleted", "user_id", id, "ratings_removed", len(rated))
	return nil
}

func (uc *Usecase) AddToWatchlist(ctx context.Context, userID string, movieID int64) error {
	return uc.addToList(ctx, ListWatchlist, userID, movieID)
}

func (uc *Usecase) RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error {
	return uc.removeFromList(ctx, ListWatchlist, userID, movieID)
}

func (uc *Usecase) Watchlist(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error) {
	return uc.listMovies(ctx, ListWatchlist, userID, p)
}

func (uc *Usecase) AddFavorite(ctx context.Context, userID string, movieID int64) error {
	return uc.addToList(ctx, ListFavorites, userID, movieID)
}

func (uc *Usecase) RemoveFavorite(ctx context.Context, userID string, movieID int64) error {
	return uc.removeFromList(ctx, ListFavorites, userID, movieID)
}

func (uc *Usecase) Favorites(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error) {
	return uc.listMovies(ctx, ListFavorites, userID, p)
}

// addToList is idempotent: adding a movie twice keeps one entry.
func (uc *Usecase) addToList(ctx context.Context, list List, userID string, movieID int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	if _, err := uc.movies.Get(ctx, movieID); err != nil {
		return err
	}
	if err := uc.lists.AddMovie(ctx, list, userID, movieID); err != nil {
		return err
	}
	uc.log.Debugw("movie added to list", "list", list, "user_id", userID, "movie_id", movieID)
	return nil
}

func (uc *Usecase) removeFromList(ctx context.Context, list List, userID string, movieID int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	if movieID <= 0 {
		return movie.ErrInvalidID
	}
	removed, err := uc.lists.RemoveMovie(ctx, list, userID, movieID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotOnList
	}
	uc.log.Debugw("movie removed from list", "list", list, "user_id", userID, "movie_id", movieID)
	return nil
}

func (uc *Usecase) listMovies(ctx context.Context, list List, userID string, p paging.Params) (paging.Page[movie.Movie], error) {
	if strings.TrimSpace(userID) == "" {
		return paging.Page[movie.Movie]{}, ErrUserIDRequired
	}
	p = paging.New(p.Page, p.Limit)
	movies, total, err := uc.lists.Movies(ctx, list, userID, p)
	if err != nil {
		return paging.Page[movie.Movie]{}, err
	}
	return paging.NewPage(movies, p, total), nil
}

func (uc *Usecase) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := uc.r.GetByEmail(ctx, email)
	return checkFree(existing, err, selfID, ErrEmailTaken)
}

func (uc *Usecase) ensureUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := uc.r.GetByUsername(ctx, username)
	return checkFree(existing, err, selfID, ErrUsernameTaken)
}

func checkFree(existing User, err error, selfID string, taken error) error {
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return taken
}
