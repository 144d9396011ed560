package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account event types.
const (
	// AccountCreated is emitted after a user registered.
	AccountCreated = "account.created"
	// AccountDeleted is emitted after a user and all their tasks were removed.
	AccountDeleted = "account.deleted"
)

// AccountEvent describes something that happened to a user account. It
// carries a snapshot of the fields a handler may need, since the user
// record itself may already be gone when the event is processed.
type AccountEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Account* constants
	Type string `json:"type"`

	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewAccountEvent creates an AccountEvent of the given type.
func NewAccountEvent(eventType string, userID uuid.UUID, name, email string) *AccountEvent {
	return &AccountEvent{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *AccountEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *AccountEvent) error
}
