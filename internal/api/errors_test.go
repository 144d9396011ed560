package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/service"
	"github.com/phrazzld/task-manager-api/internal/service/auth"
	"github.com/phrazzld/task-manager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "authentication error",
			err:            auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrapped authentication error",
			err:            fmt.Errorf("failed to authenticate: %w", auth.ErrExpiredToken),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "revoked token",
			err:            auth.ErrRevokedToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid credentials",
			err:            service.ErrInvalidCredentials,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "task not found",
			err:            store.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "user not found inside service error",
			err:            service.NewServiceError("user", "update", store.ErrUserNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "avatar not found",
			err:            service.ErrAvatarNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "duplicate email reported as bad request",
			err:            store.ErrEmailExists,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid updates",
			err:            service.ErrInvalidUpdates,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "domain validation error",
			err:            domain.ErrPasswordTooShort,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "field validation error",
			err:            domain.NewValidationError("age", "must be a number", nil),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid entity",
			err:            store.ErrInvalidEntity,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "version conflict",
			err:            service.NewServiceError("user", "update", store.ErrVersionConflict),
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "unknown error",
			err:            errors.New("connection reset by peer"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{"missing token", auth.ErrMissingToken, "Please authenticate."},
		{"invalid credentials", service.ErrInvalidCredentials, "Unable to login"},
		{"invalid updates", service.ErrInvalidUpdates, "Invalid updates!"},
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"user not found", store.ErrUserNotFound, "User not found"},
		{"avatar not found", service.ErrAvatarNotFound, "Avatar not found"},
		{"duplicate email", store.ErrEmailExists, "Email already exists"},
		{"invalid entity", store.ErrInvalidEntity, "Invalid entity data"},
		{"sentinel validation error", domain.ErrEmptyDescription, "Description cannot be empty"},
		{
			"password policy error",
			domain.ErrPasswordContainsWord,
			"Password cannot contain \"password\"",
		},
		{
			"field validation error",
			domain.NewValidationError("age", "must be a number", nil),
			"Age must be a number",
		},
		{"bare validation error", domain.ErrValidation, "Validation error"},
		{
			"internal error is not leaked",
			errors.New("pq: relation \"users\" does not exist"),
			"An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name     string
		req      interface{}
		expected string
	}{
		{
			name:     "missing field",
			req:      &CreateTaskRequest{},
			expected: "Invalid Description: required field",
		},
		{
			name:     "bad email",
			req:      &RegisterRequest{Name: "Ada", Email: "not-an-email", Password: "x"},
			expected: "Invalid Email: invalid email format",
		},
		{
			name:     "negative age",
			req:      &RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "x", Age: -1},
			expected: "Invalid Age: too small",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.expected, SanitizeValidationError(err))
		})
	}

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}
