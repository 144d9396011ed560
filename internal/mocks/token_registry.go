package mocks

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type tokenRegistry struct {
	mu     sync.Mutex
	n      int
	owners map[string]uuid.UUID
}

func newTokenRegistry() *tokenRegistry {
	return &tokenRegistry{owners: make(map[string]uuid.UUID)}
}

func (r *tokenRegistry) issue(userID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	token := fmt.Sprintf("token-%s-%d", userID, r.n)
	r.owners[token] = userID
	return token
}

func (r *tokenRegistry) lookup(token string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owners[token]
	return id, ok
}
