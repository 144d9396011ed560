package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
)

// TaskSortField names a column tasks can be ordered by. Only the constants
// below are valid; anything else means "unspecified order".
type TaskSortField string

// Sortable task fields.
const (
	SortNone        TaskSortField = ""
	SortDescription TaskSortField = "description"
	SortCompleted   TaskSortField = "completed"
	SortCreatedAt   TaskSortField = "created_at"
	SortUpdatedAt   TaskSortField = "updated_at"
)

// Valid reports whether f is one of the sortable columns.
func (f TaskSortField) Valid() bool {
	switch f {
	case SortDescription, SortCompleted, SortCreatedAt, SortUpdatedAt:
		return true
	}
	return false
}

// TaskQuery holds the filter, ordering and pagination applied when listing a
// user's tasks. The zero value lists everything in unspecified order.
type TaskQuery struct {
	// Completed, when non-nil, restricts results to tasks in that state.
	Completed *bool
	SortBy    TaskSortField
	SortDesc  bool
	// Limit caps the number of results; 0 means no limit.
	Limit int
	// Skip drops that many leading results; 0 means none.
	Skip int
}

// TaskStore defines the interface for task persistence. Every read, update
// and delete is scoped to an owner: a task that exists but belongs to
// someone else is reported exactly like a missing one.
type TaskStore interface {
	// Create saves a new task. Returns ErrInvalidEntity if the task fails
	// validation or its owner does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID if ownerID owns it.
	// Returns ErrTaskNotFound otherwise.
	GetByID(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)

	// FindByOwner lists ownerID's tasks according to query.
	FindByOwner(ctx context.Context, ownerID uuid.UUID, query TaskQuery) ([]*domain.Task, error)

	// Update saves description and completed state of a task owned by
	// task.OwnerID. Returns ErrTaskNotFound if no such owned task exists.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task owned by ownerID.
	// Returns ErrTaskNotFound if no such owned task exists.
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error

	// DeleteByOwner removes every task owned by ownerID and reports how many
	// were removed.
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
