package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
)

// UserStore defines the interface for user data persistence. It owns the
// user record including the list of active session tokens.
type UserStore interface {
	// Create saves a new user to the store.
	// It validates the user and hashes the plaintext Password internally.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID, tokens and avatar included.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their (normalized) email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update replaces the stored user with the given one, including its token
	// list and avatar. A non-empty Password is re-hashed into HashedPassword.
	//
	// The write only applies if the stored version still equals user.Version;
	// on success user.Version is incremented. Returns ErrVersionConflict when
	// another writer updated the record first, ErrUserNotFound if the user no
	// longer exists, and ErrEmailExists if the new email is taken.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their ID.
	// Returns ErrUserNotFound if the user does not exist. Fails with
	// ErrDeleteFailed while the user still owns tasks.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
