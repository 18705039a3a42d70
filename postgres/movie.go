package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinerate/movie"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovieModel represents the database model for movies.
// search_vector is generated in SQL migration and not mapped here.
type MovieModel struct {
	ID               int64          `gorm:"primaryKey"`
	TMDBID           *int           `gorm:"column:tmdb_id;uniqueIndex:movies_tmdb_id_key"`
	Title            string         `gorm:"not null"`
	OriginalTitle    string         `gorm:"not null;default:''"`
	Overview         string         `gorm:"not null;default:''"`
	Tagline          string         `gorm:"not null;default:''"`
	ReleaseDate      *time.Time     `gorm:"type:date"`
	Runtime          int            `gorm:"not null;default:0"`
	Genres           pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	OriginalLanguage string         `gorm:"not null;default:''"`
	PosterPath       string         `gorm:"not null;default:''"`
	BackdropPath     string         `gorm:"not null;default:''"`
	Popularity       float64        `gorm:"not null;default:0"`
	TMDBVoteAverage  float64        `gorm:"column:tmdb_vote_average;not null;default:0"`
	TMDBVoteCount    int            `gorm:"column:tmdb_vote_count;not null;default:0"`
	AverageRating    float64        `gorm:"not null;default:0"`
	RatingsCount     int64          `gorm:"not null;default:0"`
	SyncedAt         *time.Time
	CreatedAt        time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MovieModel) TableName() string {
	return "movies"
}

// editableMovieColumns are written by Update. Rating rollups and sync stamps are not.
var editableMovieColumns = []string{
	"tmdb_id", "title", "original_title", "overview", "tagline", "release_date",
	"runtime", "genres", "original_language", "poster_path", "backdrop_path",
	"popularity", "updated_at",
}

// syncedMovieColumns are overwritten when a movie is re-imported from TMDB.
var syncedMovieColumns = []string{
	"title", "original_title", "overview", "tagline", "release_date", "runtime",
	"genres", "original_language", "poster_path", "backdrop_path", "popularity",
	"tmdb_vote_average", "tmdb_vote_count", "synced_at", "updated_at",
}

var movieSortColumns = map[string]string{
	movie.SortPopularity:    "popularity",
	movie.SortReleaseDate:   "release_date",
	movie.SortTitle:         "lower(title)",
	movie.SortAverageRating: "average_rating",
	movie.SortCreatedAt:     "created_at",
}

// MovieRepository implements movie.Repository interface
// and provides PostgreSQL full-text search.
type MovieRepository struct {
	db *gorm.DB
}

// NewMovieRepository creates a new movie repository
func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

func (r *MovieRepository) Create(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	model := toModelMovie(m)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err, "movies_tmdb_id_key") {
			return movie.Movie{}, movie.ErrTMDBIDTaken
		}
		return movie.Movie{}, err
	}
	return toDomainMovie(model), nil
}

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (movie.Movie, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *MovieRepository) GetByTMDBID(ctx context.Context, tmdbID int) (movie.Movie, error) {
	return r.first(ctx, "tmdb_id = ?", tmdbID)
}

func (r *MovieRepository) List(ctx context.Context, f movie.Filter) ([]movie.Movie, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&MovieModel{})
		if f.Query != "" {
			q = q.Where("search_vector @@ websearch_to_tsquery('english', ?)", f.Query)
		}
		if f.Genre != "" {
			q = q.Where("EXISTS (SELECT 1 FROM unnest(genres) g WHERE lower(g) = lower(?))", f.Genre)
		}
		if f.Year > 0 {
			q = q.Where("(release_date >= make_date(?, 1, 1) AND release_date < make_date(?, 1, 1))", f.Year, f.Year+1)
		}
		if f.MinRating > 0 {
			q = q.Where("average_rating >= ?", f.MinRating)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := movieSortColumns[f.SortBy]
	if !ok {
		column = movieSortColumns[movie.SortPopularity]
	}
	direction := "DESC"
	if f.Order == movie.OrderAsc {
		direction = "ASC"
	}

	var models []MovieModel
	err := filtered().
		Order(fmt.Sprintf("%s %s NULLS LAST, id", column, direction)).
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainMovies(models), total, nil
}

func (r *MovieRepository) Search(ctx context.Context, query string, limit int) ([]movie.Movie, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	const sql = `
SELECT *
FROM movies
WHERE search_vector @@ websearch_to_tsquery('english', ?)
ORDER BY ts_rank(search_vector, websearch_to_tsquery('english', ?)) DESC, popularity DESC, id
LIMIT ?`

	var models []MovieModel
	if err := r.db.WithContext(ctx).Raw(sql, query, query, limit).Scan(&models).Error; err != nil {
		return nil, err
	}
	return toDomainMovies(models), nil
}

func (r *MovieRepository) Update(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	model := toModelMovie(m)
	model.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&MovieModel{}).
		Where("id = ?", m.ID).
		Select(editableMovieColumns).
		Updates(&model)
	if result.Error != nil {
		if isUniqueViolation(result.Error, "movies_tmdb_id_key") {
			return movie.Movie{}, movie.ErrTMDBIDTaken
		}
		return movie.Movie{}, result.Error
	}
	if result.RowsAffected == 0 {
		return movie.Movie{}, movie.ErrNotFound
	}
	return r.GetByID(ctx, m.ID)
}

// Delete removes the movie. Ratings and list entries go with it through FK cascades.
func (r *MovieRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&MovieModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return movie.ErrNotFound
	}
	return nil
}

// RefreshRatingStats recomputes average_rating and ratings_count in one aggregate statement.
func (r *MovieRepository) RefreshRatingStats(ctx context.Context, id int64) (movie.Movie, error) {
	const sql = `
UPDATE movies m
SET average_rating = s.average, ratings_count = s.total
FROM (
    SELECT COALESCE(ROUND(AVG(score)::numeric, 2), 0)::float8 AS average, COUNT(*) AS total
    FROM ratings
    WHERE movie_id = ?
) s
WHERE m.id = ?`

	result := r.db.WithContext(ctx).Exec(sql, id, id)
	if result.Error != nil {
		return movie.Movie{}, result.Error
	}
	if result.RowsAffected == 0 {
		return movie.Movie{}, movie.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// UpsertByTMDBID inserts a movie or refreshes the synced columns of the row with the same TMDB id.
func (r *MovieRepository) UpsertByTMDBID(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	if m.TMDBID == nil {
		return movie.Movie{}, errors.New("upsert movie: missing tmdb id")
	}
	model := toModelMovie(m)
	model.ID = 0

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tmdb_id"}},
		DoUpdates: clause.AssignmentColumns(syncedMovieColumns),
	}).Create(&model).Error
	if err != nil {
		return movie.Movie{}, err
	}
	return r.GetByTMDBID(ctx, *m.TMDBID)
}

// ListStale pages through movies with a TMDB id that were never synced or synced before syncedBefore.
func (r *MovieRepository) ListStale(ctx context.Context, syncedBefore time.Time, afterID int64, limit int) ([]movie.Movie, error) {
	var models []MovieModel
	err := r.db.WithContext(ctx).
		Where("tmdb_id IS NOT NULL").
		Where("(synced_at IS NULL OR synced_at < ?)", syncedBefore).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainMovies(models), nil
}

func (r *MovieRepository) first(ctx context.Context, query string, arg interface{}) (movie.Movie, error) {
	var model MovieModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return movie.Movie{}, movie.ErrNotFound
		}
		return movie.Movie{}, err
	}
	return toDomainMovie(model), nil
}

func toDomainMovies(models []MovieModel) []movie.Movie {
	movies := make([]movie.Movie, len(models))
	for i, model := range models {
		movies[i] = toDomainMovie(model)
	}
	return movies
}

func toDomainMovie(model MovieModel) movie.Movie {
	genres := []string(model.Genres)
	if genres == nil {
		genres = []string{}
	}
	return movie.Movie{
		ID:               model.ID,
		TMDBID:           model.TMDBID,
		Title:            model.Title,
		OriginalTitle:    model.OriginalTitle,
		Overview:         model.Overview,
		Tagline:          model.Tagline,
		ReleaseDate:      model.ReleaseDate,
		Runtime:          model.Runtime,
		Genres:           genres,
		OriginalLanguage: model.OriginalLanguage,
		PosterPath:       model.PosterPath,
		BackdropPath:     model.BackdropPath,
		Popularity:       model.Popularity,
		TMDBVoteAverage:  model.TMDBVoteAverage,
		TMDBVoteCount:    model.TMDBVoteCount,
		AverageRating:    model.AverageRating,
		RatingsCount:     model.RatingsCount,
		SyncedAt:         model.SyncedAt,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func toModelMovie(m movie.Movie) MovieModel {
	genres := pq.StringArray(m.Genres)
	if genres == nil {
		genres = pq.StringArray{}
	}
	return MovieModel{
		ID:               m.ID,
		TMDBID:           m.TMDBID,
		Title:            m.Title,
		OriginalTitle:    m.OriginalTitle,
		Overview:         m.Overview,
		Tagline:          m.Tagline,
		ReleaseDate:      m.ReleaseDate,
		Runtime:          m.Runtime,
		Genres:           genres,
		OriginalLanguage: m.OriginalLanguage,
		PosterPath:       m.PosterPath,
		BackdropPath:     m.BackdropPath,
		Popularity:       m.Popularity,
		TMDBVoteAverage:  m.TMDBVoteAverage,
		TMDBVoteCount:    m.TMDBVoteCount,
		AverageRating:    m.AverageRating,
		RatingsCount:     m.RatingsCount,
		SyncedAt:         m.SyncedAt,
	}
}
