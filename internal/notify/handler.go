package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/task-manager-api/internal/events"
	"github.com/phrazzld/task-manager-api/internal/jobs"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
)

// Job types enqueued by Handler.
const (
	JobTypeWelcomeEmail      = "welcome_email"
	JobTypeCancellationEmail = "cancellation_email"
)

// Handler turns account events into mail jobs.
type Handler struct {
	queue  jobs.QueueWriter
	mailer Mailer
	from   string
	logger *slog.Logger
}

var _ events.EventHandler = (*Handler)(nil)

// NewHandler creates a Handler that enqueues mail jobs on queue and sends
// them through mailer from the address from.
func NewHandler(queue jobs.QueueWriter, mailer Mailer, from string, logger *slog.Logger) (*Handler, error) {
	if queue == nil {
		return nil, errors.New("queue cannot be nil")
	}
	if mailer == nil {
		return nil, errors.New("mailer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		queue:  queue,
		mailer: mailer,
		from:   from,
		logger: logger.With(slog.String("component", "notify_handler")),
	}, nil
}

// welcomeMessage is sent after registration.
func welcomeMessage(from string, event *events.AccountEvent) Message {
	return Message{
		From:    from,
		To:      event.Email,
		Subject: "Thanks for joining in!",
		Body:    fmt.Sprintf("Welcome to the app, %s. Let us know how you get along with it.", event.Name),
	}
}

// cancellationMessage is sent after an account is deleted.
func cancellationMessage(from string, event *events.AccountEvent) Message {
	return Message{
		From:    from,
		To:      event.Email,
		Subject: "Your account has been deleted.",
		Body:    fmt.Sprintf("Sorry to see you go, %s. Let us know what would have kept you on board.", event.Name),
	}
}

// HandleEvent implements events.EventHandler. Events other than account
// creation and deletion are ignored. A full or closed queue is logged and
// the mail dropped; the error is never returned to the emitter.
func (h *Handler) HandleEvent(ctx context.Context, event *events.AccountEvent) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	var (
		jobType string
		msg     Message
	)
	switch event.Type {
	case events.AccountCreated:
		jobType, msg = JobTypeWelcomeEmail, welcomeMessage(h.from, event)
	case events.AccountDeleted:
		jobType, msg = JobTypeCancellationEmail, cancellationMessage(h.from, event)
	default:
		log.Debug("ignoring event", slog.String("event_type", event.Type))
		return nil
	}

	job := jobs.NewFunc(jobType, func(ctx context.Context) error {
		return h.mailer.Send(ctx, msg)
	})
	if err := h.queue.Enqueue(job); err != nil {
		log.Warn("failed to enqueue notification email",
			slog.String("job_type", jobType),
			slog.String("user_id", event.UserID.String()),
			slog.String("error", err.Error()))
		return nil
	}

	log.Debug("notification email queued",
		slog.String("job_type", jobType),
		slog.String("job_id", job.ID().String()),
		slog.String("user_id", event.UserID.String()))
	return nil
}
