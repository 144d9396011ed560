package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Job is a unit of background work.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier, used in logs
	Type() string

	// Execute runs the job
	Execute(ctx context.Context) error
}

// QueueReader gives workers read-only access to queued jobs.
type QueueReader interface {
	Channel() <-chan Job
}

// QueueWriter lets producers submit jobs.
type QueueWriter interface {
	// Enqueue adds a job without blocking. It returns ErrQueueFull or
	// ErrQueueClosed when the job cannot be accepted.
	Enqueue(job Job) error
}

// Func adapts a plain function into a Job.
type Func struct {
	id      uuid.UUID
	jobType string
	fn      func(ctx context.Context) error
}

// NewFunc creates a Job of the given type that runs fn.
func NewFunc(jobType string, fn func(ctx context.Context) error) *Func {
	return &Func{id: uuid.New(), jobType: jobType, fn: fn}
}

func (f *Func) ID() uuid.UUID                     { return f.id }
func (f *Func) Type() string                      { return f.jobType }
func (f *Func) Execute(ctx context.Context) error { return f.fn(ctx) }
