package httpserver

import (
	"strings"
	"time"

	"cinerate/errs"
	"cinerate/movie"
	"cinerate/pkg/paging"
	"cinerate/user"
)

const dateLayout = "2006-01-02"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,notblank,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,notblank,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,notblank,max=72"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,notblank"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,notblank,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
}

func (r UpdateProfileRequest) ToPatch() user.ProfilePatch {
	return user.ProfilePatch{
		Username: r.Username,
		Email:    r.Email,
	}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,notblank,max=72"`
	NewPassword     string `json:"new_password" validate:"required,notblank,min=8,max=72,nefield=CurrentPassword"`
}

type PageQuery struct {
	Page  int `query:"page" validate:"omitempty,gte=1"`
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (q PageQuery) Params() paging.Params {
	return paging.New(q.Page, q.Limit)
}

type MovieListQuery struct {
	Query     string  `query:"q" validate:"max=200"`
	Genre     string  `query:"genre" validate:"max=50"`
	Year      int     `query:"year" validate:"omitempty,gte=1870,lte=2200"`
	MinRating float64 `query:"min_rating" validate:"omitempty,gte=0,lte=10"`
	SortBy    string  `query:"sort" validate:"omitempty,oneof=popularity release_date title average_rating created_at"`
	Order     string  `query:"order" validate:"omitempty,oneof=asc desc"`
	Page      int     `query:"page" validate:"omitempty,gte=1"`
	Limit     int     `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (q MovieListQuery) ToFilter() movie.Filter {
	return movie.Filter{
		Query:     q.Query,
		Genre:     q.Genre,
		Year:      q.Year,
		MinRating: q.MinRating,
		SortBy:    q.SortBy,
		Order:     q.Order,
		Page:      q.Page,
		Limit:     q.Limit,
	}
}

type SearchQuery struct {
	Query string `query:"q" validate:"required,notblank,max=200"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

type TMDBSearchQuery struct {
	Query string `query:"q" validate:"required,notblank,max=200"`
	Page  int    `query:"page" validate:"omitempty,gte=1,lte=500"`
}

type CreateMovieRequest struct {
	TMDBID           *int     `json:"tmdb_id" validate:"omitempty,gt=0"`
	Title            string   `json:"title" validate:"required,notblank,max=255"`
	OriginalTitle    string   `json:"original_title" validate:"max=255"`
	Overview         string   `json:"overview" validate:"max=5000"`
	Tagline          string   `json:"tagline" validate:"max=500"`
	ReleaseDate      string   `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Runtime          int      `json:"runtime" validate:"gte=0,lte=1000"`
	Genres           []string `json:"genres" validate:"max=20,dive,notblank,max=50"`
	OriginalLanguage string   `json:"original_language" validate:"max=10"`
	PosterPath       string   `json:"poster_path" validate:"max=255"`
	BackdropPath     string   `json:"backdrop_path" validate:"max=255"`
	Popularity       float64  `json:"popularity" validate:"gte=0"`
}

func (r CreateMovieRequest) ToMovie() (movie.Movie, error) {
	releaseDate, err := parseDate(r.ReleaseDate)
	if err != nil {
		return movie.Movie{}, err
	}
	return movie.Movie{
		TMDBID:           r.TMDBID,
		Title:            r.Title,
		OriginalTitle:    r.OriginalTitle,
		Overview:         r.Overview,
		Tagline:          r.Tagline,
		ReleaseDate:      releaseDate,
		Runtime:          r.Runtime,
		Genres:           r.Genres,
		OriginalLanguage: r.OriginalLanguage,
		PosterPath:       r.PosterPath,
		BackdropPath:     r.BackdropPath,
		Popularity:       r.Popularity,
	}, nil
}

type UpdateMovieRequest struct {
	TMDBID           *int     `json:"tmdb_id" validate:"omitempty,gt=0"`
	Title            *string  `json:"title" validate:"omitempty,notblank,max=255"`
	OriginalTitle    *string  `json:"original_title" validate:"omitempty,max=255"`
	Overview         *string  `json:"overview" validate:"omitempty,max=5000"`
	Tagline          *string  `json:"tagline" validate:"omitempty,max=500"`
	ReleaseDate      *string  `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Runtime          *int     `json:"runtime" validate:"omitempty,gte=0,lte=1000"`
	Genres           []string `json:"genres" validate:"omitempty,max=20,dive,notblank,max=50"`
	OriginalLanguage *string  `json:"original_language" validate:"omitempty,max=10"`
	PosterPath       *string  `json:"poster_path" validate:"omitempty,max=255"`
	BackdropPath     *string  `json:"backdrop_path" validate:"omitempty,max=255"`
	Popularity       *float64 `json:"popularity" validate:"omitempty,gte=0"`
}

func (r UpdateMovieRequest) ToPatch() (movie.Patch, error) {
	p := movie.Patch{
		TMDBID:           r.TMDBID,
		Title:            r.Title,
		OriginalTitle:    r.OriginalTitle,
		Overview:         r.Overview,
		Tagline:          r.Tagline,
		Runtime:          r.Runtime,
		Genres:           r.Genres,
		OriginalLanguage: r.OriginalLanguage,
		PosterPath:       r.PosterPath,
		BackdropPath:     r.BackdropPath,
		Popularity:       r.Popularity,
	}
	if r.ReleaseDate != nil {
		d, err := parseDate(*r.ReleaseDate)
		if err != nil {
			return movie.Patch{}, err
		}
		p.ReleaseDate = d
	}
	return p, nil
}

type RateMovieRequest struct {
	Score  int    `json:"score" validate:"required,gte=1,lte=10"`
	Review string `json:"review" validate:"max=2000"`
}

type UpdateRatingRequest struct {
	Score  int     `json:"score" validate:"required,gte=1,lte=10"`
	Review *string `json:"review" validate:"omitempty,max=2000"`
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, errs.Errorf(errs.EINVALID, "release_date must use YYYY-MM-DD")
	}
	return &d, nil
}
