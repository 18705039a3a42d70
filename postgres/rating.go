package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"cinerate/movie"
	"cinerate/pkg/paging"
	"cinerate/rating"
	"cinerate/user"

	"gorm.io/gorm"
)

type RatingModel struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:ratings_user_movie_key,priority:1"`
	MovieID   int64     `gorm:"not null;uniqueIndex:ratings_user_movie_key,priority:2"`
	Score     int       `gorm:"not null"`
	Review    string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

func (RatingModel) TableName() string {
	return "ratings"
}

// ratingUpsertRow is a RETURNING row of the upsert; Inserted is derived from xmax.
type ratingUpsertRow struct {
	RatingModel `gorm:"embedded"`
	Inserted    bool
}

// RatingRepository implements rating.Repository interface
type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert creates the (user, movie) rating or overwrites score and review of the existing one.
func (r *RatingRepository) Upsert(ctx context.Context, in rating.Rating) (rating.Rating, bool, error) {
	const sql = `
INSERT INTO ratings (user_id, movie_id, score, review, created_at, updated_at)
VALUES (?, ?, ?, ?, now(), now())
ON CONFLICT (user_id, movie_id) DO UPDATE
SET score = EXCLUDED.score, review = EXCLUDED.review, updated_at = now()
RETURNING id, user_id, movie_id, score, review, created_at, updated_at, (xmax = 0) AS inserted`

	var row ratingUpsertRow
	err := r.db.WithContext(ctx).Raw(sql, in.UserID, in.MovieID, in.Score, in.Review).Scan(&row).Error
	if err != nil {
		return rating.Rating{}, false, mapRatingWriteError(err)
	}
	return toDomainRating(row.RatingModel), row.Inserted, nil
}

func (r *RatingRepository) GetByID(ctx context.Context, id int64) (rating.Rating, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *RatingRepository) GetByUserAndMovie(ctx context.Context, userID string, movieID int64) (rating.Rating, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ? AND movie_id = ?", userID, movieID))
}

func (r *RatingRepository) Update(ctx context.Context, in rating.Rating) (rating.Rating, error) {
	result := r.db.WithContext(ctx).Model(&RatingModel{}).Where("id = ?", in.ID).Updates(map[string]interface{}{
		"score":      in.Score,
		"review":     in.Review,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return rating.Rating{}, result.Error
	}
	if result.RowsAffected == 0 {
		return rating.Rating{}, rating.ErrNotFound
	}
	return r.GetByID(ctx, in.ID)
}

func (r *RatingRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&RatingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return rating.ErrNotFound
	}
	return nil
}

// Stats aggregates average and count, then the per-score histogram. Both
// queries read the same snapshot so the histogram always sums to the count.
func (r *RatingRepository) Stats(ctx context.Context, movieID int64) (rating.Stats, error) {
	var summary struct {
		Average float64
		Total   int64
	}
	var buckets []struct {
		Score int
		Total int64
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
SELECT COALESCE(ROUND(AVG(score)::numeric, 2), 0)::float8 AS average, COUNT(*) AS total
FROM ratings
WHERE movie_id = ?`, movieID).Scan(&summary).Error
		if err != nil {
			return err
		}
		return tx.Raw(`
SELECT score, COUNT(*) AS total
FROM ratings
WHERE movie_id = ?
GROUP BY score`, movieID).Scan(&buckets).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return rating.Stats{}, err
	}

	histogram := rating.EmptyHistogram()
	for _, b := range buckets {
		histogram[b.Score] = b.Total
	}
	return rating.Stats{
		MovieID:   movieID,
		Average:   summary.Average,
		Count:     summary.Total,
		Histogram: histogram,
	}, nil
}

func (r *RatingRepository) ListByMovie(ctx context.Context, movieID int64, p paging.Params) ([]rating.Rating, int64, error) {
	return r.list(ctx, p, "movie_id = ?", movieID)
}

func (r *RatingRepository) ListByUser(ctx context.Context, userID string, p paging.Params) ([]rating.Rating, int64, error) {
	return r.list(ctx, p, "user_id = ?", userID)
}

func (r *RatingRepository) list(ctx context.Context, p paging.Params, query string, arg interface{}) ([]rating.Rating, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&RatingModel{}).Where(query, arg).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []RatingModel
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	ratings := make([]rating.Rating, len(models))
	for i, model := range models {
		ratings[i] = toDomainRating(model)
	}
	return ratings, total, nil
}

func (r *RatingRepository) first(q *gorm.DB) (rating.Rating, error) {
	var model RatingModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rating.Rating{}, rating.ErrNotFound
		}
		return rating.Rating{}, err
	}
	return toDomainRating(model), nil
}

func toDomainRating(model RatingModel) rating.Rating {
	return rating.Rating{
		ID:        model.ID,
		UserID:    model.UserID,
		MovieID:   model.MovieID,
		Score:     model.Score,
		Review:    model.Review,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// mapRatingWriteError turns FK violations into not-found errors of the missing side.
func mapRatingWriteError(err error) error {
	constraint, ok := foreignKeyConstraint(err)
	if !ok {
		return err
	}
	if strings.Contains(constraint, "user_id") {
		return user.ErrNotFound
	}
	return movie.ErrNotFound
}
