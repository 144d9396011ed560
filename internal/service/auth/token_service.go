package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// maxTokenUpdateAttempts bounds the reload-and-retry loop when concurrent
// requests modify the same user's token list.
const maxTokenUpdateAttempts = 3

// TokenService manages the lifecycle of session tokens. A token is active
// while its signature and expiry check out and its literal string is still
// listed on the owning user.
type TokenService interface {
	// Issue signs a new token for userID and appends it to the user's token
	// list. The token is only returned once that list has been persisted.
	Issue(ctx context.Context, userID uuid.UUID) (string, error)

	// Revoke removes token from userID's list. Revoking a token that is not
	// listed is a no-op.
	Revoke(ctx context.Context, userID uuid.UUID, token string) error

	// RevokeAll empties userID's token list.
	RevokeAll(ctx context.Context, userID uuid.UUID) error

	// Resolve verifies signature and expiry and returns the embedded user ID.
	// It does not check whether the token is still listed on the user.
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

type tokenService struct {
	jwt    JWTService
	users  store.UserStore
	logger *slog.Logger
}

// Ensure tokenService implements TokenService interface
var _ TokenService = (*tokenService)(nil)

// NewTokenService creates a TokenService that signs with jwtService and keeps
// token lists in users.
func NewTokenService(jwtService JWTService, users store.UserStore, logger *slog.Logger) (TokenService, error) {
	if jwtService == nil {
		return nil, errors.New("jwtService cannot be nil")
	}
	if users == nil {
		return nil, errors.New("users cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &tokenService{
		jwt:    jwtService,
		users:  users,
		logger: logger.With(slog.String("component", "token_service")),
	}, nil
}

// Issue implements TokenService.Issue
func (s *tokenService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	token, err := s.jwt.GenerateToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	err = s.updateTokens(ctx, userID, func(u *domain.User) bool {
		u.AddToken(token)
		return true
	})
	if err != nil {
		log.Error("failed to persist session token",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to persist session token: %w", err)
	}

	log.Debug("session token issued", slog.String("user_id", userID.String()))
	return token, nil
}

// Revoke implements TokenService.Revoke
func (s *tokenService) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	err := s.updateTokens(ctx, userID, func(u *domain.User) bool {
		return u.RemoveToken(token)
	})
	if err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("session token revoked",
		slog.String("user_id", userID.String()))
	return nil
}

// RevokeAll implements TokenService.RevokeAll
func (s *tokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	err := s.updateTokens(ctx, userID, func(u *domain.User) bool {
		u.ClearTokens()
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to revoke session tokens: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("all session tokens revoked",
		slog.String("user_id", userID.String()))
	return nil
}

// Resolve implements TokenService.Resolve
func (s *tokenService) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrMissingToken
	}

	claims, err := s.jwt.ValidateToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if claims == nil || claims.UserID == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}

	return claims.UserID, nil
}

// updateTokens loads the user, applies mutate and saves the result. A stale
// version means another request changed the user in between; the change is
// then replayed on a fresh copy. mutate returns false when there is nothing
// to save.
func (s *tokenService) updateTokens(
	ctx context.Context,
	userID uuid.UUID,
	mutate func(u *domain.User) bool,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for attempt := 1; attempt <= maxTokenUpdateAttempts; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if !mutate(user) {
			return nil
		}

		err = s.users.Update(ctx, user)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}

		log.Debug("token list changed concurrently, retrying",
			slog.String("user_id", userID.String()),
			slog.Int("attempt", attempt))
	}

	return fmt.Errorf("%w: gave up after %d attempts", store.ErrVersionConflict, maxTokenUpdateAttempts)
}
