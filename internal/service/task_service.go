package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// allowedTaskUpdates lists the fields PATCH /tasks/{id} may change.
var allowedTaskUpdates = map[string]bool{
	"description": true,
	"completed":   true,
}

// TaskService provides the task operations of an authenticated user. Every
// method takes the acting user's ID and only ever touches that user's tasks;
// someone else's task is reported as store.ErrTaskNotFound.
type TaskService interface {
	CreateTask(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*domain.Task, error)
	GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID uuid.UUID, query store.TaskQuery) ([]*domain.Task, error)

	// UpdateTask applies a partial update. Keys other than description and
	// completed fail with ErrInvalidUpdates before the task is looked up.
	UpdateTask(
		ctx context.Context,
		ownerID, taskID uuid.UUID,
		updates map[string]json.RawMessage,
	) (*domain.Task, error)

	// DeleteTask removes the task and returns it as it was.
	DeleteTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
}

type taskService struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// Ensure taskService implements TaskService interface
var _ TaskService = (*taskService)(nil)

// NewTaskService creates a TaskService backed by tasks.
func NewTaskService(tasks store.TaskStore, logger *slog.Logger) (TaskService, error) {
	if tasks == nil {
		return nil, errors.New("tasks cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskService{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// wrap passes expected store conditions through and hides the rest in a
// ServiceError.
func (s *taskService) wrap(op string, err error) error {
	if errors.Is(err, store.ErrTaskNotFound) ||
		errors.Is(err, store.ErrInvalidEntity) ||
		errors.Is(err, domain.ErrValidation) {
		return err
	}
	return NewServiceError("task", op, err)
}

// CreateTask implements TaskService.CreateTask
func (s *taskService) CreateTask(
	ctx context.Context,
	ownerID uuid.UUID,
	description string,
	completed bool,
) (*domain.Task, error) {
	task, err := domain.NewTask(ownerID, description, completed)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create task",
			slog.String("owner_id", ownerID.String()),
			slog.String("error", err.Error()))
		return nil, s.wrap("create", err)
	}
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskService) GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return task, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskService) ListTasks(
	ctx context.Context,
	ownerID uuid.UUID,
	query store.TaskQuery,
) ([]*domain.Task, error) {
	tasks, err := s.tasks.FindByOwner(ctx, ownerID, query)
	if err != nil {
		return nil, s.wrap("list", err)
	}
	return tasks, nil
}

// decodeUpdateValue unmarshals one PATCH field into v. JSON null is
// rejected: it would otherwise decode to the zero value without error.
func decodeUpdateValue(field string, raw json.RawMessage, v interface{}, message string) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return domain.NewValidationError(field, message, nil)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewValidationError(field, message, nil)
	}
	return nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskService) UpdateTask(
	ctx context.Context,
	ownerID, taskID uuid.UUID,
	updates map[string]json.RawMessage,
) (*domain.Task, error) {
	for field := range updates {
		if !allowedTaskUpdates[field] {
			return nil, ErrInvalidUpdates
		}
	}

	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, s.wrap("update", err)
	}

	if raw, ok := updates["description"]; ok {
		var description string
		if err := decodeUpdateValue("description", raw, &description, "must be a string"); err != nil {
			return nil, err
		}
		task.Description = strings.TrimSpace(description)
	}
	if raw, ok := updates["completed"]; ok {
		var completed bool
		if err := decodeUpdateValue("completed", raw, &completed, "must be a boolean"); err != nil {
			return nil, err
		}
		task.Completed = completed
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, s.wrap("update", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated",
		slog.String("task_id", taskID.String()))
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskService) DeleteTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, s.wrap("delete", err)
	}

	if err := s.tasks.Delete(ctx, ownerID, taskID); err != nil {
		return nil, s.wrap("delete", err)
	}
	return task, nil
}
