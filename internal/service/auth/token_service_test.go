package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/mocks"
	"github.com/phrazzld/task-manager-api/internal/service/auth"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokenService(t *testing.T) (auth.TokenService, *mocks.MockUserStore, *domain.User) {
	t.Helper()

	users := mocks.NewMockUserStore()
	user, err := domain.NewUser("Ada", "ada@example.com", "red12345!", 36)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), user))

	svc, err := auth.NewTokenService(mocks.NewTokenPerUserJWTService(), users, nil)
	require.NoError(t, err)
	return svc, users, user
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := auth.NewTokenService(nil, mocks.NewMockUserStore(), nil)
	assert.Error(t, err)

	_, err = auth.NewTokenService(&mocks.MockJWTService{}, nil, nil)
	assert.Error(t, err)
}

func TestTokenService_IssueAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, users, user := setupTokenService(t)

	token, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasToken(token))

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved)
}

func TestTokenService_Resolve(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTokenService(t)

	_, err := svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	_, err = svc.Resolve(ctx, "forged")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_Resolve_NilClaims(t *testing.T) {
	svc, err := auth.NewTokenService(&mocks.MockJWTService{}, mocks.NewMockUserStore(), nil)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "some-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenService_RevokeKeepsOtherSessions(t *testing.T) {
	ctx := context.Background()
	svc, users, user := setupTokenService(t)

	first, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID, first))

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasToken(first))
	assert.True(t, stored.HasToken(second))
}

func TestTokenService_RevokeUnknownTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, users, user := setupTokenService(t)

	_, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)
	before, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID, "never-issued"))

	after, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version, "no write should happen")
	assert.Len(t, after.Tokens, 1)
}

func TestTokenService_RevokeAll(t *testing.T) {
	ctx := context.Background()
	svc, users, user := setupTokenService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(ctx, user.ID)
		require.NoError(t, err)
	}

	require.NoError(t, svc.RevokeAll(ctx, user.ID))

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Tokens)
}

func TestTokenService_IssueForUnknownUser(t *testing.T) {
	svc, _, _ := setupTokenService(t)

	token, err := svc.Issue(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.Empty(t, token)
}

func TestTokenService_IssuePersistFailureReturnsNoToken(t *testing.T) {
	svc, users, user := setupTokenService(t)
	users.UpdateFn = func(ctx context.Context, u *domain.User) error {
		return errors.New("database unavailable")
	}

	token, err := svc.Issue(context.Background(), user.ID)
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestTokenService_GenerateFailure(t *testing.T) {
	users := mocks.NewMockUserStore()
	svc, err := auth.NewTokenService(&mocks.MockJWTService{Err: errors.New("sign failed")}, users, nil)
	require.NoError(t, err)

	token, err := svc.Issue(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestTokenService_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	_, users, user := setupTokenService(t)

	calls := 0
	conflicting := &conflictingUserStore{MockUserStore: users, conflicts: 1, calls: &calls}
	svc, err := auth.NewTokenService(mocks.NewTokenPerUserJWTService(), conflicting, nil)
	require.NoError(t, err)

	token, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasToken(token))
}

func TestTokenService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, users, user := setupTokenService(t)

	calls := 0
	users.UpdateFn = func(ctx context.Context, u *domain.User) error {
		calls++
		return store.ErrVersionConflict
	}

	token, err := svc.Issue(context.Background(), user.ID)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Empty(t, token)
	assert.Equal(t, 3, calls)
}

// conflictingUserStore fails the first conflicts updates with a version
// conflict before delegating.
type conflictingUserStore struct {
	*mocks.MockUserStore
	conflicts int
	calls     *int
}

func (s *conflictingUserStore) Update(ctx context.Context, u *domain.User) error {
	*s.calls++
	if *s.calls <= s.conflicts {
		return store.ErrVersionConflict
	}
	return s.MockUserStore.Update(ctx, u)
}
