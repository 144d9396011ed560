package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// MockUserStore implements store.UserStore in memory for testing.
//
// Without function overrides it behaves like the Postgres store: it
// validates, "hashes" plaintext passwords with the MockPasswordHasher
// scheme, enforces unique emails and checks versions on Update. Users are
// copied on the way in and out, so callers never share state with the store.
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFn     func(ctx context.Context, user *domain.User) error
	DeleteFn     func(ctx context.Context, id uuid.UUID) error

	// Hasher, if set, replaces the default password hashing.
	Hasher interface {
		Hash(password string) (string, error)
	}

	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates a new mock store with initialized defaults
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		users: make(map[uuid.UUID]*domain.User),
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.Tokens = append([]domain.SessionToken{}, u.Tokens...)
	if u.Avatar != nil {
		c.Avatar = append([]byte{}, u.Avatar...)
	}
	return &c
}

func (m *MockUserStore) hash(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	if m.Hasher != nil {
		h, err := m.Hasher.Hash(user.Password)
		if err != nil {
			return err
		}
		user.HashedPassword = h
	} else {
		user.HashedPassword = mockHashPrefix + user.Password
	}
	user.Password = ""
	return nil
}

// emailTakenLocked reports whether email belongs to a user other than id.
func (m *MockUserStore) emailTakenLocked(email string, id uuid.UUID) bool {
	for _, u := range m.users {
		if u.Email == email && u.ID != id {
			return true
		}
	}
	return false
}

// Create implements the UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}

	user.Email = domain.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTakenLocked(user.Email, user.ID) {
		return store.ErrEmailExists
	}
	if err := m.hash(user); err != nil {
		return err
	}

	user.Version = 1
	if user.Tokens == nil {
		user.Tokens = []domain.SessionToken{}
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

// GetByEmail implements the UserStore interface
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}

	email = domain.NormalizeEmail(email)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return copyUser(u), nil
}

// Update implements the UserStore interface
func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}

	user.Email = domain.NormalizeEmail(user.Email)
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	if existing.Version != user.Version {
		return store.ErrVersionConflict
	}
	if m.emailTakenLocked(user.Email, user.ID) {
		return store.ErrEmailExists
	}
	if err := m.hash(user); err != nil {
		return err
	}

	user.Version++
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = copyUser(user)
	return nil
}

// Delete implements the UserStore interface
func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// WithTx implements the UserStore interface for transaction support
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// Count returns the number of stored users.
func (m *MockUserStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}
