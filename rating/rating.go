package rating

import (
	"time"
	"unicode/utf8"

	"cinerate/errs"
)

const (
	MinScore        = 1
	MaxScore        = 10
	MaxReviewLength = 2000
)

var (
	ErrInvalidID     = errs.Errorf(errs.EINVALID, "rating: invalid id")
	ErrInvalidScore  = errs.Errorf(errs.EINVALID, "rating: score must be between 1 and 10")
	ErrReviewTooLong = errs.Errorf(errs.EINVALID, "rating: review must be at most 2000 characters")
	ErrNotFound      = errs.Errorf(errs.ENOTFOUND, "rating: not found")
	ErrForbidden     = errs.Errorf(errs.EFORBIDDEN, "rating: not allowed")
)

type Rating struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Score     int       `json:"score"`
	Review    string    `json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Rating) Validate() error {
	if r.Score < MinScore || r.Score > MaxScore {
		return ErrInvalidScore
	}
	if utf8.RuneCountInString(r.Review) > MaxReviewLength {
		return ErrReviewTooLong
	}
	return nil
}

// Stats summarizes all ratings of a movie. Histogram always has keys 1..10.
type Stats struct {
	MovieID   int64         `json:"movie_id"`
	Average   float64       `json:"average"`
	Count     int64         `json:"count"`
	Histogram map[int]int64 `json:"histogram"`
}

func EmptyHistogram() map[int]int64 {
	h := make(map[int]int64, MaxScore)
	for s := MinScore; s <= MaxScore; s++ {
		h[s] = 0
	}
	return h
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID string
	Admin  bool
}
