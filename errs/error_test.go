package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"cinerate/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	err := &errs.Error{Code: errs.ECONFLICT, Message: "movie: tmdb id already imported"}

	assert.Equal(t, "application error: code=conflict message=movie: tmdb id already imported", err.Error())
	assert.Equal(t, "application error: code=internal message=", (&errs.Error{Code: errs.EINTERNAL}).Error())
}

func TestErrorCodeAndMessage(t *testing.T) {
	notFound := errs.Errorf(errs.ENOTFOUND, "rating: not found")

	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{name: "nil", err: nil, code: "", message: ""},
		{name: "application error", err: notFound, code: errs.ENOTFOUND, message: "rating: not found"},
		{
			name:    "wrapped once",
			err:     fmt.Errorf("load rating 7: %w", notFound),
			code:    errs.ENOTFOUND,
			message: "rating: not found",
		},
		{
			name:    "wrapped twice",
			err:     fmt.Errorf("delete: %w", fmt.Errorf("load: %w", errs.Errorf(errs.EFORBIDDEN, "rating: not allowed"))),
			code:    errs.EFORBIDDEN,
			message: "rating: not allowed",
		},
		{
			name:    "joined",
			err:     errors.Join(errors.New("tmdb: timeout"), errs.Errorf(errs.ENOTIMPLEMENTED, "movie: tmdb is not configured")),
			code:    errs.ENOTIMPLEMENTED,
			message: "movie: tmdb is not configured",
		},
		{name: "plain error", err: errors.New("pq: connection reset"), code: errs.EINTERNAL, message: "Internal error."},
		{name: "wrapped plain error", err: fmt.Errorf("query: %w", errors.New("boom")), code: errs.EINTERNAL, message: "Internal error."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, errs.ErrorCode(tt.err))
			assert.Equal(t, tt.message, errs.ErrorMessage(tt.err))
		})
	}
}

func TestErrorf(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		format  string
		args    []interface{}
		message string
	}{
		{name: "no args", code: errs.EUNAUTHORIZED, format: "invalid or expired token", message: "invalid or expired token"},
		{name: "string arg", code: errs.EINVALID, format: "%s must be a positive integer", args: []interface{}{"movieId"}, message: "movieId must be a positive integer"},
		{name: "int args", code: errs.EINVALID, format: "score must be between %d and %d", args: []interface{}{1, 10}, message: "score must be between 1 and 10"},
		{name: "literal percent", code: errs.EINVALID, format: "discount is 100%%", message: "discount is 100%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errs.Errorf(tt.code, tt.format, tt.args...)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
		})
	}
}

func TestErrorf_SentinelIdentity(t *testing.T) {
	sentinel := errs.Errorf(errs.ECONFLICT, "user: email already registered")
	wrapped := fmt.Errorf("register: %w", sentinel)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, errs.Errorf(errs.ECONFLICT, "user: email already registered"))
}

func TestErrorCodes_Distinct(t *testing.T) {
	codes := []string{
		errs.ECONFLICT,
		errs.EINTERNAL,
		errs.EINVALID,
		errs.ENOTFOUND,
		errs.ENOTIMPLEMENTED,
		errs.EUNAUTHORIZED,
		errs.EFORBIDDEN,
	}

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
}
