package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cinerate/movie"
	"cinerate/pkg/paging"
	"cinerate/user"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListEntryModel is a row of user_watchlist or user_favorites.
type ListEntryModel struct {
	UserID    string    `gorm:"type:uuid;primaryKey"`
	MovieID   int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

var listTables = map[user.List]string{
	user.ListWatchlist: "user_watchlist",
	user.ListFavorites: "user_favorites",
}

// ListRepository implements user.ListRepository on top of the association tables.
type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

// AddMovie inserts the association. Adding an existing entry is a no-op.
func (r *ListRepository) AddMovie(ctx context.Context, list user.List, userID string, movieID int64) error {
	table, err := listTable(list)
	if err != nil {
		return err
	}
	entry := ListEntryModel{UserID: userID, MovieID: movieID}
	err = r.db.WithContext(ctx).Table(table).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		if constraint, ok := foreignKeyConstraint(err); ok {
			if strings.Contains(constraint, "user_id") {
				return user.ErrNotFound
			}
			return movie.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *ListRepository) RemoveMovie(ctx context.Context, list user.List, userID string, movieID int64) (bool, error) {
	table, err := listTable(list)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Table(table).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&ListEntryModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Movies lists the movies of a user's list, most recently added first.
func (r *ListRepository) Movies(ctx context.Context, list user.List, userID string, p paging.Params) ([]movie.Movie, int64, error) {
	table, err := listTable(list)
	if err != nil {
		return nil, 0, err
	}
	joined := func() *gorm.DB {
		return r.db.WithContext(ctx).Table("movies").
			Joins(fmt.Sprintf("JOIN %s l ON l.movie_id = movies.id", table)).
			Where("l.user_id = ?", userID)
	}

	var total int64
	if err := joined().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []MovieModel
	err = joined().
		Select("movies.*").
		Order("l.created_at DESC, movies.id").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainMovies(models), total, nil
}

func listTable(list user.List) (string, error) {
	table, ok := listTables[list]
	if !ok {
		return "", fmt.Errorf("unknown list %q", list)
	}
	return table, nil
}
