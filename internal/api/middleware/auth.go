package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/api/shared"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/service/auth"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// UnauthenticatedMessage is the body of every 401 response, whatever the
// reason the request was rejected.
const UnauthenticatedMessage = "Please authenticate."

// AuthMiddleware admits requests that carry an active session token.
type AuthMiddleware struct {
	tokens auth.TokenService
	users  store.UserStore
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(tokens auth.TokenService, users store.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate rejects a request unless its token verifies, its user still
// exists and the token is still listed on that user. The user is re-read on
// every request, so a logout takes effect immediately.
//
// On success the user, the user ID and the raw token are stored in the
// request context (see GetUser, GetUserID, GetToken).
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContextOrDefault(ctx, slog.Default())

		token, ok := bearerToken(r)
		if !ok {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, UnauthenticatedMessage, auth.ErrMissingToken)
			return
		}

		userID, err := m.tokens.Resolve(ctx, token)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, UnauthenticatedMessage, err)
			return
		}

		user, err := m.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, UnauthenticatedMessage, err)
				return
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"An unexpected error occurred", err)
			return
		}

		if !user.HasToken(token) {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, UnauthenticatedMessage,
				auth.ErrRevokedToken, shared.WithElevatedLogLevel())
			return
		}

		ctx = context.WithValue(ctx, shared.UserContextKey, user)
		ctx = context.WithValue(ctx, shared.UserIDContextKey, user.ID)
		ctx = context.WithValue(ctx, shared.TokenContextKey, token)
		ctx = logger.WithLogger(ctx, log.With(slog.String("user_id", user.ID.String())))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser returns the authenticated user stored by Authenticate.
func GetUser(r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(shared.UserContextKey).(*domain.User)
	return user, ok && user != nil
}

// GetUserID extracts the user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// GetToken returns the session token the request authenticated with.
func GetToken(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(shared.TokenContextKey).(string)
	return token, ok && token != ""
}
