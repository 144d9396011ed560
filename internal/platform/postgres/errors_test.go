package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, nil }

func (m mockResult) RowsAffected() (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.rowsAffected, nil
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{
			"email unique violation",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailUniqueConstraint},
			store.ErrEmailExists,
		},
		{
			"other unique violation",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "tasks_pkey"},
			store.ErrDuplicate,
		},
		{
			"foreign key violation",
			&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_owner_id_fkey"},
			store.ErrInvalidEntity,
		},
		{
			"check violation",
			&pgconn.PgError{Code: checkViolationCode, ConstraintName: "users_age_check"},
			store.ErrInvalidEntity,
		},
		{
			"not null violation",
			&pgconn.PgError{Code: notNullViolationCode, ColumnName: "name"},
			store.ErrInvalidEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.expected == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.expected)
		})
	}

	t.Run("unmapped error is returned unchanged", func(t *testing.T) {
		err := errors.New("connection refused")
		assert.Same(t, err, MapError(err))

		pgErr := &pgconn.PgError{Code: "XX000"}
		assert.Same(t, error(pgErr), MapError(pgErr))
	})

	t.Run("email violation is also a generic duplicate", func(t *testing.T) {
		err := MapError(fmt.Errorf("insert: %w",
			&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailUniqueConstraint}))
		assert.True(t, store.IsDuplicateError(err))
	})
}

func TestViolationHelpers(t *testing.T) {
	unique := &pgconn.PgError{Code: uniqueViolationCode}
	fk := &pgconn.PgError{Code: foreignKeyViolationCode}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("wrapped: %w", fk)))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
}

func TestRowsAffected(t *testing.T) {
	n, err := rowsAffected(mockResult{rowsAffected: 3}, store.ErrTaskNotFound)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = rowsAffected(mockResult{rowsAffected: 0}, store.ErrTaskNotFound)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	n, err = rowsAffected(mockResult{rowsAffected: 0}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	driverErr := errors.New("driver failure")
	_, err = rowsAffected(mockResult{err: driverErr}, nil)
	assert.ErrorIs(t, err, driverErr)

	_, err = rowsAffected(nil, nil)
	assert.Error(t, err)
}
