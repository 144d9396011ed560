package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/mocks"
	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUserWithTasks(t *testing.T, users *mocks.MockUserStore, tasks *mocks.MockTaskStore, email string, n int) *domain.User {
	t.Helper()
	ctx := context.Background()

	user, err := domain.NewUser("Owner", email, "red12345!", 30)
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user))

	for i := 0; i < n; i++ {
		task, err := domain.NewTask(user.ID, "task", false)
		require.NoError(t, err)
		require.NoError(t, tasks.Create(ctx, task))
	}
	return user
}

func TestNewCascadeDeleter_Validation(t *testing.T) {
	_, err := service.NewCascadeDeleter(nil, mocks.NewMockTaskStore(), nil, nil)
	assert.Error(t, err)

	_, err = service.NewCascadeDeleter(mocks.NewMockUserStore(), nil, nil, nil)
	assert.Error(t, err)
}

func TestCascadeDeleter_DeleteUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserStore()
	tasks := mocks.NewMockTaskStore()

	victim := seedUserWithTasks(t, users, tasks, "victim@example.com", 3)
	bystander := seedUserWithTasks(t, users, tasks, "bystander@example.com", 2)

	deleter, err := service.NewCascadeDeleter(users, tasks, nil, nil)
	require.NoError(t, err)

	deleted, err := deleter.DeleteUser(ctx, victim.ID)
	require.NoError(t, err)
	assert.Equal(t, victim.ID, deleted.ID)

	_, err = users.GetByID(ctx, victim.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.Zero(t, tasks.CountOwnedBy(victim.ID))

	assert.Equal(t, 2, tasks.CountOwnedBy(bystander.ID), "other users' tasks are untouched")
	_, err = users.GetByID(ctx, bystander.ID)
	assert.NoError(t, err)
}

func TestCascadeDeleter_UserWithoutTasks(t *testing.T) {
	users := mocks.NewMockUserStore()
	tasks := mocks.NewMockTaskStore()
	user := seedUserWithTasks(t, users, tasks, "empty@example.com", 0)

	deleter, err := service.NewCascadeDeleter(users, tasks, nil, nil)
	require.NoError(t, err)

	_, err = deleter.DeleteUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, users.Count())
}

func TestCascadeDeleter_UnknownUser(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	deleteByOwnerCalled := false
	tasks.DeleteByOwnerFn = func(ctx context.Context, ownerID uuid.UUID) (int64, error) {
		deleteByOwnerCalled = true
		return 0, nil
	}

	deleter, err := service.NewCascadeDeleter(mocks.NewMockUserStore(), tasks, nil, nil)
	require.NoError(t, err)

	_, err = deleter.DeleteUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.False(t, deleteByOwnerCalled)
}

func TestCascadeDeleter_TaskDeleteFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserStore()
	tasks := mocks.NewMockTaskStore()
	user := seedUserWithTasks(t, users, tasks, "keep@example.com", 1)

	tasks.DeleteByOwnerFn = func(ctx context.Context, ownerID uuid.UUID) (int64, error) {
		return 0, errors.New("connection reset")
	}

	deleter, err := service.NewCascadeDeleter(users, tasks, nil, nil)
	require.NoError(t, err)

	_, err = deleter.DeleteUser(ctx, user.ID)
	require.Error(t, err)
	var serviceErr *service.ServiceError
	assert.ErrorAs(t, err, &serviceErr)

	_, err = users.GetByID(ctx, user.ID)
	assert.NoError(t, err, "user must survive a failed task delete")
}

func TestCascadeDeleter_Transactional(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	users := mocks.NewMockUserStore()
	tasks := mocks.NewMockTaskStore()
	user := seedUserWithTasks(t, users, tasks, "tx@example.com", 2)

	deleter, err := service.NewCascadeDeleter(users, tasks, db, nil)
	require.NoError(t, err)

	t.Run("commits on success", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectCommit()

		_, err := deleter.DeleteUser(context.Background(), user.ID)
		require.NoError(t, err)
		require.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		other := seedUserWithTasks(t, users, tasks, "tx2@example.com", 1)
		users.DeleteFn = func(ctx context.Context, id uuid.UUID) error {
			return store.ErrDeleteFailed
		}
		defer func() { users.DeleteFn = nil }()

		sqlMock.ExpectBegin()
		sqlMock.ExpectRollback()

		_, err := deleter.DeleteUser(context.Background(), other.ID)
		assert.ErrorIs(t, err, store.ErrDeleteFailed)
		require.NoError(t, sqlMock.ExpectationsWereMet())
	})
}
