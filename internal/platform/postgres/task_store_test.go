package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskRowColumns = []string{"id", "owner_id", "description", "completed", "created_at", "updated_at"}

func newTaskStoreMock(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresTaskStore(db, nil), mock
}

func boolPtr(b bool) *bool { return &b }

func TestBuildFindQuery(t *testing.T) {
	owner := uuid.New()
	base := "SELECT id, owner_id, description, completed, created_at, updated_at FROM tasks WHERE owner_id = $1"

	tests := []struct {
		name      string
		query     store.TaskQuery
		wantSQL   string
		wantExtra []any
	}{
		{
			name:    "no options",
			query:   store.TaskQuery{},
			wantSQL: base,
		},
		{
			name:      "completed filter",
			query:     store.TaskQuery{Completed: boolPtr(false)},
			wantSQL:   base + " AND completed = $2",
			wantExtra: []any{false},
		},
		{
			name:    "sort descending",
			query:   store.TaskQuery{SortBy: store.SortCreatedAt, SortDesc: true},
			wantSQL: base + " ORDER BY created_at DESC, id DESC",
		},
		{
			name:    "unknown sort field is ignored",
			query:   store.TaskQuery{SortBy: store.TaskSortField("owner_id; DROP TABLE tasks")},
			wantSQL: base,
		},
		{
			name: "everything",
			query: store.TaskQuery{
				Completed: boolPtr(true),
				SortBy:    store.SortDescription,
				Limit:     10,
				Skip:      20,
			},
			wantSQL:   base + " AND completed = $2 ORDER BY description ASC, id ASC LIMIT $3 OFFSET $4",
			wantExtra: []any{true, 10, 20},
		},
		{
			name:      "skip without limit",
			query:     store.TaskQuery{Skip: 5},
			wantSQL:   base + " OFFSET $2",
			wantExtra: []any{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlText, args := buildFindQuery(owner, tt.query)
			assert.Equal(t, tt.wantSQL, sqlText)
			assert.Equal(t, append([]any{owner}, tt.wantExtra...), args)
		})
	}
}

func TestTaskStoreCreate(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	task, err := domain.NewTask(uuid.New(), "buy milk", false)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(task.ID, task.OwnerID, "buy milk", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreCreateUnknownOwner(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	task, err := domain.NewTask(uuid.New(), "buy milk", false)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_owner_id_fkey"})

	assert.ErrorIs(t, s.Create(context.Background(), task), store.ErrInvalidEntity)
}

func TestTaskStoreGetByIDScopedToOwner(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	owner, taskID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 AND owner_id = $2")).
		WithArgs(taskID, owner).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(taskID.String(), owner.String(), "buy milk", true, now, now))

	task, err := s.GetByID(context.Background(), owner, taskID)
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, owner, task.OwnerID)
	assert.True(t, task.Completed)

	other := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 AND owner_id = $2")).
		WithArgs(taskID, other).
		WillReturnError(sql.ErrNoRows)

	_, err = s.GetByID(context.Background(), other, taskID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreFindByOwner(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	owner := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND completed = $2 ORDER BY created_at DESC")).
		WithArgs(owner, true).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(uuid.NewString(), owner.String(), "second", true, now, now).
			AddRow(uuid.NewString(), owner.String(), "first", true, now.Add(-time.Hour), now))

	tasks, err := s.FindByOwner(context.Background(), owner, store.TaskQuery{
		Completed: boolPtr(true),
		SortBy:    store.SortCreatedAt,
		SortDesc:  true,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "second", tasks[0].Description)
	assert.Equal(t, "first", tasks[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreFindByOwnerEmpty(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	owner := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE owner_id = $1")).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	tasks, err := s.FindByOwner(context.Background(), owner, store.TaskQuery{})
	require.NoError(t, err)
	assert.NotNil(t, tasks, "an empty result should be an empty slice")
	assert.Empty(t, tasks)
}

func TestTaskStoreUpdate(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	task, err := domain.NewTask(uuid.New(), "buy milk", false)
	require.NoError(t, err)
	task.Completed = true

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).
		WithArgs("buy milk", true, sqlmock.AnyArg(), task.ID, task.OwnerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Update(context.Background(), task))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Update(context.Background(), task), store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreDelete(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	owner, taskID := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1 AND owner_id = $2")).
		WithArgs(taskID, owner).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), owner, taskID))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1 AND owner_id = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), owner, taskID), store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreDeleteByOwner(t *testing.T) {
	s, mock := newTaskStoreMock(t)
	owner := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE owner_id = $1")).
		WithArgs(owner).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeleteByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
