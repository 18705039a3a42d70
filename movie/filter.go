package movie

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"cinerate/pkg/paging"
)

const (
	SortPopularity    = "popularity"
	SortReleaseDate   = "release_date"
	SortTitle         = "title"
	SortAverageRating = "average_rating"
	SortCreatedAt     = "created_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var sortColumns = map[string]struct{}{
	SortPopularity:    {},
	SortReleaseDate:   {},
	SortTitle:         {},
	SortAverageRating: {},
	SortCreatedAt:     {},
}

type Filter struct {
	Query     string
	Genre     string
	Year      int
	MinRating float64
	SortBy    string
	Order     string
	Page      int
	Limit     int
}

// Normalize fills defaults and rejects unknown sort keys or out-of-range values.
func (f Filter) Normalize() (Filter, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Genre = strings.TrimSpace(f.Genre)
	f.SortBy = strings.ToLower(strings.TrimSpace(f.SortBy))
	f.Order = strings.ToLower(strings.TrimSpace(f.Order))

	if f.SortBy == "" {
		f.SortBy = SortPopularity
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		return Filter{}, ErrInvalidFilter
	}
	switch f.Order {
	case "":
		f.Order = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return Filter{}, ErrInvalidFilter
	}
	if f.Year < 0 || f.MinRating < 0 || f.MinRating > 10 {
		return Filter{}, ErrInvalidFilter
	}

	p := paging.New(f.Page, f.Limit)
	f.Page, f.Limit = p.Page, p.Limit
	return f, nil
}

func (f Filter) Params() paging.Params {
	return paging.Params{Page: f.Page, Limit: f.Limit}
}

// digest identifies a normalized filter inside the list cache namespace.
func (f Filter) digest() string {
	raw := fmt.Sprintf("q=%s|g=%s|y=%d|r=%g|s=%s|o=%s|p=%d|l=%d",
		strings.ToLower(f.Query), strings.ToLower(f.Genre), f.Year, f.MinRating, f.SortBy, f.Order, f.Page, f.Limit)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
