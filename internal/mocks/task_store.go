package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// MockTaskStore implements store.TaskStore in memory for testing. Without
// overrides it scopes every operation to the owner, like the Postgres store,
// and applies TaskQuery filters, ordering and pagination.
type MockTaskStore struct {
	CreateFn        func(ctx context.Context, task *domain.Task) error
	GetByIDFn       func(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	FindByOwnerFn   func(ctx context.Context, ownerID uuid.UUID, query store.TaskQuery) ([]*domain.Task, error)
	UpdateFn        func(ctx context.Context, task *domain.Task) error
	DeleteFn        func(ctx context.Context, ownerID, taskID uuid.UUID) error
	DeleteByOwnerFn func(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// OwnerExists, if set, is consulted on Create to emulate the foreign key.
	OwnerExists func(ownerID uuid.UUID) bool

	mu    sync.RWMutex
	tasks []*domain.Task // insertion order
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{}
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

// Create implements store.TaskStore
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if m.OwnerExists != nil && !m.OwnerExists(task.OwnerID) {
		return store.ErrInvalidEntity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, copyTask(task))
	return nil
}

func (m *MockTaskStore) findLocked(ownerID, taskID uuid.UUID) int {
	for i, t := range m.tasks {
		if t.ID == taskID && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

// GetByID implements store.TaskStore
func (m *MockTaskStore) GetByID(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, ownerID, taskID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.findLocked(ownerID, taskID)
	if i < 0 {
		return nil, store.ErrTaskNotFound
	}
	return copyTask(m.tasks[i]), nil
}

func taskLess(field store.TaskSortField, a, b *domain.Task) bool {
	switch field {
	case store.SortDescription:
		return strings.Compare(a.Description, b.Description) < 0
	case store.SortCompleted:
		return !a.Completed && b.Completed
	case store.SortCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	case store.SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
	return false
}

// FindByOwner implements store.TaskStore
func (m *MockTaskStore) FindByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	query store.TaskQuery,
) ([]*domain.Task, error) {
	if m.FindByOwnerFn != nil {
		return m.FindByOwnerFn(ctx, ownerID, query)
	}

	m.mu.RLock()
	result := []*domain.Task{}
	for _, t := range m.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if query.Completed != nil && t.Completed != *query.Completed {
			continue
		}
		result = append(result, copyTask(t))
	}
	m.mu.RUnlock()

	if query.SortBy.Valid() {
		sort.SliceStable(result, func(i, j int) bool {
			if query.SortDesc {
				return taskLess(query.SortBy, result[j], result[i])
			}
			return taskLess(query.SortBy, result[i], result[j])
		})
	}

	if query.Skip > 0 {
		if query.Skip >= len(result) {
			return []*domain.Task{}, nil
		}
		result = result[query.Skip:]
	}
	if query.Limit > 0 && query.Limit < len(result) {
		result = result[:query.Limit]
	}
	return result, nil
}

// Update implements store.TaskStore
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.findLocked(task.OwnerID, task.ID)
	if i < 0 {
		return store.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	m.tasks[i] = copyTask(task)
	return nil
}

// Delete implements store.TaskStore
func (m *MockTaskStore) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, taskID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.findLocked(ownerID, taskID)
	if i < 0 {
		return store.ErrTaskNotFound
	}
	m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
	return nil
}

// DeleteByOwner implements store.TaskStore
func (m *MockTaskStore) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if m.DeleteByOwnerFn != nil {
		return m.DeleteByOwnerFn(ctx, ownerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tasks[:0]
	var removed int64
	for _, t := range m.tasks {
		if t.OwnerID == ownerID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.tasks = kept
	return removed, nil
}

// WithTx implements store.TaskStore
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// CountOwnedBy returns how many stored tasks belong to ownerID.
func (m *MockTaskStore) CountOwnedBy(ownerID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.tasks {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n
}
