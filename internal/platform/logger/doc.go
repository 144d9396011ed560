// Package logger configures the process-wide slog JSON logger from the
// server configuration and carries request-scoped loggers (trace ID, user
// ID) through context.Context.
package logger
