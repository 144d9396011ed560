// Package service contains the application use cases: registering and
// authenticating users, managing their profiles and avatars, and the
// owner-scoped task operations.
//
// Services orchestrate domain objects and the store interfaces defined in
// internal/store. They never depend on a concrete storage implementation.
// Expected conditions are reported as sentinel errors (ErrInvalidCredentials,
// ErrInvalidUpdates, store.ErrTaskNotFound, ...) that callers match with
// errors.Is; the API layer maps them to HTTP status codes.
//
// Deleting an account goes through CascadeDeleter, which removes the user's
// tasks before the user record and runs both steps in one transaction when
// a database handle is available.
package service
