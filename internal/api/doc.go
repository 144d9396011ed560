// Package api handles incoming HTTP requests for users and tasks: request
// decoding and validation, calls into the service layer, and response
// formatting. Errors are translated to status codes and client-safe
// messages in one place (MapErrorToStatusCode, GetSafeErrorMessage).
package api
