package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// CascadeDeleter removes a user together with every task they own. Tasks go
// first; the user record is only deleted once they are all gone, so no task
// is ever left pointing at a missing owner.
type CascadeDeleter struct {
	users  store.UserStore
	tasks  store.TaskStore
	db     store.TxBeginner
	logger *slog.Logger
}

// NewCascadeDeleter creates a CascadeDeleter. With a non-nil db both
// deletes run in a single transaction. Without one they run in sequence and
// a crash between the two steps leaves a user with no tasks, never tasks
// without a user.
func NewCascadeDeleter(
	users store.UserStore,
	tasks store.TaskStore,
	db store.TxBeginner,
	logger *slog.Logger,
) (*CascadeDeleter, error) {
	if users == nil {
		return nil, errors.New("users cannot be nil")
	}
	if tasks == nil {
		return nil, errors.New("tasks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CascadeDeleter{
		users:  users,
		tasks:  tasks,
		db:     db,
		logger: logger.With(slog.String("component", "cascade_deleter")),
	}, nil
}

// DeleteUser deletes userID's tasks and then the user, and returns the user
// as it was before deletion. Returns store.ErrUserNotFound if there is no
// such user. If removing the tasks fails the user is left in place.
func (c *CascadeDeleter) DeleteUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	var deleted *domain.User
	run := func(ctx context.Context, users store.UserStore, tasks store.TaskStore) error {
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		n, err := tasks.DeleteByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to delete tasks of user: %w", err)
		}

		if err := users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		log.Info("user deleted with their tasks",
			slog.String("user_id", userID.String()),
			slog.Int64("tasks_deleted", n))
		deleted = user
		return nil
	}

	var err error
	if c.db != nil {
		err = store.RunInTransaction(ctx, c.db, func(ctx context.Context, tx *sql.Tx) error {
			return run(ctx, c.users.WithTx(tx), c.tasks.WithTx(tx))
		})
	} else {
		err = run(ctx, c.users, c.tasks)
	}

	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrUserNotFound
		}
		log.Error("cascade delete failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("user", "delete", err)
	}

	return deleted, nil
}
