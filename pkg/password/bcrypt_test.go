package password_test

import (
	"testing"

	"cinerate/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt(t *testing.T) {
	h := password.NewBcrypt(bcrypt.MinCost)

	hashed, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hashed)

	t.Run("matching password", func(t *testing.T) {
		assert.NoError(t, h.Compare(hashed, "correct horse battery"))
	})

	t.Run("wrong password", func(t *testing.T) {
		assert.ErrorIs(t, h.Compare(hashed, "wrong"), password.ErrMismatch)
	})

	t.Run("garbage hash", func(t *testing.T) {
		err := h.Compare("not-a-hash", "whatever")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, password.ErrMismatch)
	})
}

func TestNewBcrypt_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, password.NewBcrypt(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, password.NewBcrypt(99).Cost)
}
