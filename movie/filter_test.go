package movie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Filter
		want    Filter
		wantErr error
	}{
		{
			name: "defaults",
			in:   Filter{},
			want: Filter{SortBy: SortPopularity, Order: OrderDesc, Page: 1, Limit: 20},
		},
		{
			name: "trims and lowercases sort",
			in:   Filter{Query: " alien ", SortBy: " Title ", Order: "ASC", Page: 3, Limit: 500},
			want: Filter{Query: "alien", SortBy: SortTitle, Order: OrderAsc, Page: 3, Limit: 100},
		},
		{name: "unknown sort", in: Filter{SortBy: "budget"}, wantErr: ErrInvalidFilter},
		{name: "unknown order", in: Filter{Order: "sideways"}, wantErr: ErrInvalidFilter},
		{name: "rating above ten", in: Filter{MinRating: 11}, wantErr: ErrInvalidFilter},
		{name: "negative year", in: Filter{Year: -1}, wantErr: ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()

			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListCacheKey(t *testing.T) {
	a, _ := Filter{Genre: "Drama"}.Normalize()
	b, _ := Filter{Genre: "drama", Order: "desc"}.Normalize()
	c, _ := Filter{Genre: "Drama", Page: 2}.Normalize()

	assert.Equal(t, ListCacheKey(a), ListCacheKey(b))
	assert.NotEqual(t, ListCacheKey(a), ListCacheKey(c))
	assert.Contains(t, ListCacheKey(a), ListCachePrefix)
	assert.Equal(t, "movie:3:stats", StatsCacheKey(3))
}

func TestPatch_Apply(t *testing.T) {
	title := "New"
	runtime := 120
	m := Movie{ID: 1, Title: "Old", Genres: []string{"Drama"}}

	got := Patch{Title: &title, Runtime: &runtime, Genres: []string{"Action", "action"}}.Apply(m)

	assert.Equal(t, "New", got.Title)
	assert.Equal(t, 120, got.Runtime)
	assert.Equal(t, []string{"Action"}, got.Genres)
	assert.Equal(t, int64(1), got.ID)
}
