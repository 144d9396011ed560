package auth_test

import (
	"testing"

	"github.com/phrazzld/task-manager-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("red12345!")
	require.NoError(t, err)
	assert.NotEqual(t, "red12345!", hash)

	assert.NoError(t, hasher.Compare(hash, "red12345!"))
	assert.ErrorIs(t, hasher.Compare(hash, "wrong-password"), bcrypt.ErrMismatchedHashAndPassword)
	assert.Error(t, hasher.Compare("not-a-hash", "red12345!"))
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("red12345!")
	require.NoError(t, err)
	second, err := hasher.Hash("red12345!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	hasher := auth.NewBcryptHasher(100)

	hash, err := hasher.Hash("red12345!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
