package movie

import (
	"strings"
	"time"

	"cinerate/errs"
)

var (
	ErrInvalidQuery      = errs.Errorf(errs.EINVALID, "invalid search query")
	ErrInvalidID         = errs.Errorf(errs.EINVALID, "movie: invalid id")
	ErrInvalidTitle      = errs.Errorf(errs.EINVALID, "movie: title is required")
	ErrInvalidRuntime    = errs.Errorf(errs.EINVALID, "movie: runtime must not be negative")
	ErrInvalidFilter     = errs.Errorf(errs.EINVALID, "movie: invalid filter")
	ErrNotFound          = errs.Errorf(errs.ENOTFOUND, "movie: not found")
	ErrTMDBIDTaken       = errs.Errorf(errs.ECONFLICT, "movie: tmdb id already imported")
	ErrTMDBNotConfigured = errs.Errorf(errs.ENOTIMPLEMENTED, "movie: tmdb is not configured")
	ErrTMDBNotFound      = errs.Errorf(errs.ENOTFOUND, "movie: not found on tmdb")
)

type Movie struct {
	ID               int64      `json:"id"`
	TMDBID           *int       `json:"tmdb_id,omitempty"`
	Title            string     `json:"title"`
	OriginalTitle    string     `json:"original_title,omitempty"`
	Overview         string     `json:"overview,omitempty"`
	Tagline          string     `json:"tagline,omitempty"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	Runtime          int        `json:"runtime,omitempty"`
	Genres           []string   `json:"genres"`
	OriginalLanguage string     `json:"original_language,omitempty"`
	PosterPath       string     `json:"poster_path,omitempty"`
	BackdropPath     string     `json:"backdrop_path,omitempty"`
	Popularity       float64    `json:"popularity"`
	TMDBVoteAverage  float64    `json:"tmdb_vote_average"`
	TMDBVoteCount    int        `json:"tmdb_vote_count"`
	AverageRating    float64    `json:"average_rating"`
	RatingsCount     int64      `json:"ratings_count"`
	SyncedAt         *time.Time `json:"synced_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (m Movie) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrInvalidTitle
	}
	if m.Runtime < 0 {
		return ErrInvalidRuntime
	}
	if m.TMDBID != nil && *m.TMDBID <= 0 {
		return errs.Errorf(errs.EINVALID, "movie: invalid tmdb id")
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	TMDBID           *int
	Title            *string
	OriginalTitle    *string
	Overview         *string
	Tagline          *string
	ReleaseDate      *time.Time
	Runtime          *int
	Genres           []string
	OriginalLanguage *string
	PosterPath       *string
	BackdropPath     *string
	Popularity       *float64
}

func (p Patch) Apply(m Movie) Movie {
	if p.TMDBID != nil {
		m.TMDBID = p.TMDBID
	}
	if p.Title != nil {
		m.Title = strings.TrimSpace(*p.Title)
	}
	if p.OriginalTitle != nil {
		m.OriginalTitle = *p.OriginalTitle
	}
	if p.Overview != nil {
		m.Overview = *p.Overview
	}
	if p.Tagline != nil {
		m.Tagline = *p.Tagline
	}
	if p.ReleaseDate != nil {
		m.ReleaseDate = p.ReleaseDate
	}
	if p.Runtime != nil {
		m.Runtime = *p.Runtime
	}
	if p.Genres != nil {
		m.Genres = normalizeGenres(p.Genres)
	}
	if p.OriginalLanguage != nil {
		m.OriginalLanguage = *p.OriginalLanguage
	}
	if p.PosterPath != nil {
		m.PosterPath = *p.PosterPath
	}
	if p.BackdropPath != nil {
		m.BackdropPath = *p.BackdropPath
	}
	if p.Popularity != nil {
		m.Popularity = *p.Popularity
	}
	return m
}

func normalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if g == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}
