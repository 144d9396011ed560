package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/task-manager-api/internal/domain"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidCredentials is returned by Login for an unknown email and for
	// a wrong password alike. API layer should map this to HTTP 400.
	ErrInvalidCredentials = errors.New("unable to login")

	// ErrInvalidUpdates indicates a PATCH body named a field that may not be
	// changed. It wraps domain.ErrValidation.
	ErrInvalidUpdates = fmt.Errorf("%w: invalid updates", domain.ErrValidation)
)

// ServiceError wraps an unexpected failure with the service and operation
// it happened in. Expected conditions are returned as sentinels instead.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
