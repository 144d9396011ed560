package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountEvent(t *testing.T) {
	userID := uuid.New()

	event := NewAccountEvent(AccountCreated, userID, "Ada", "ada@example.com")

	require.NotNil(t, event)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, AccountCreated, event.Type)
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, "Ada", event.Name)
	assert.Equal(t, "ada@example.com", event.Email)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	other := NewAccountEvent(AccountCreated, userID, "Ada", "ada@example.com")
	assert.NotEqual(t, event.ID, other.ID, "every event gets its own ID")
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *AccountEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *AccountEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestRecordingEmitter(t *testing.T) {
	rec := &RecordingEmitter{}
	event := NewAccountEvent(AccountDeleted, uuid.New(), "Ada", "ada@example.com")

	require.NoError(t, rec.EmitEvent(context.Background(), event))
	assert.Equal(t, []*AccountEvent{event}, rec.Events())

	rec.Err = errors.New("emit failed")
	assert.EqualError(t, rec.EmitEvent(context.Background(), event), "emit failed")
	assert.Len(t, rec.Events(), 2)
}
