package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/events"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/service/auth"
	"github.com/phrazzld/task-manager-api/internal/store"
)

// maxUserUpdateAttempts bounds how often a profile change is replayed after
// a concurrent write to the same user.
const maxUserUpdateAttempts = 3

// dummyPassword is hashed once and compared against on logins for unknown
// emails.
const dummyPassword = "not-a-real-account-secret"

// allowedProfileUpdates lists the fields PATCH /users/me may change.
var allowedProfileUpdates = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

// UserService provides account operations for the API layer.
type UserService interface {
	// Register creates a user and opens a first session for them.
	// Returns a domain validation error for bad input and
	// store.ErrEmailExists if the email is taken.
	Register(ctx context.Context, in RegisterInput) (*domain.User, string, error)

	// Login verifies email and password and opens a new session.
	// Any mismatch is reported as ErrInvalidCredentials.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)

	// Logout ends the session identified by token.
	Logout(ctx context.Context, userID uuid.UUID, token string) error

	// LogoutAll ends every session of the user.
	LogoutAll(ctx context.Context, userID uuid.UUID) error

	// UpdateProfile applies a partial update. Keys outside name, email,
	// password and age fail the whole request with ErrInvalidUpdates before
	// anything is changed.
	UpdateProfile(ctx context.Context, userID uuid.UUID, updates map[string]json.RawMessage) (*domain.User, error)

	// DeleteAccount removes the user and all of their tasks and returns the
	// user as it was.
	DeleteAccount(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// SetAvatar processes and stores an uploaded avatar image.
	SetAvatar(ctx context.Context, userID uuid.UUID, filename string, data []byte) error

	// DeleteAvatar removes the user's avatar.
	DeleteAvatar(ctx context.Context, userID uuid.UUID) error

	// GetAvatar returns the stored PNG avatar or ErrAvatarNotFound.
	GetAvatar(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

// AccountDeleter removes a user and everything they own.
type AccountDeleter interface {
	DeleteUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

var _ AccountDeleter = (*CascadeDeleter)(nil)

type userService struct {
	users   store.UserStore
	tokens  auth.TokenService
	hasher  auth.PasswordHasher
	deleter AccountDeleter
	avatars AvatarProcessor
	emitter events.EventEmitter
	logger  *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Ensure userService implements UserService interface
var _ UserService = (*userService)(nil)

// NewUserService creates a UserService. emitter may be nil, in which case
// no account events are published.
func NewUserService(
	users store.UserStore,
	tokens auth.TokenService,
	hasher auth.PasswordHasher,
	deleter AccountDeleter,
	avatars AvatarProcessor,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (UserService, error) {
	if users == nil {
		return nil, errors.New("users cannot be nil")
	}
	if tokens == nil {
		return nil, errors.New("tokens cannot be nil")
	}
	if hasher == nil {
		return nil, errors.New("hasher cannot be nil")
	}
	if deleter == nil {
		return nil, errors.New("deleter cannot be nil")
	}
	if avatars == nil {
		avatars = PNGAvatarProcessor{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userService{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		deleter: deleter,
		avatars: avatars,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register implements UserService.Register
func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(in.Name, in.Email, in.Password, in.Age)
	if err != nil {
		log.Debug("registration rejected", slog.String("error", err.Error()))
		return nil, "", err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) || errors.Is(err, domain.ErrValidation) {
			log.Debug("registration rejected", slog.String("error", err.Error()))
			return nil, "", err
		}
		log.Error("failed to create user", slog.String("error", err.Error()))
		return nil, "", NewServiceError("user", "register", err)
	}

	s.emit(ctx, events.NewAccountEvent(events.AccountCreated, user.ID, user.Name, user.Email))

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token for new user",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return nil, "", NewServiceError("user", "register", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

// compareDummy spends the same effort as a real password check so unknown
// emails cannot be told apart by response time.
func (s *userService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// Login implements UserService.Login
func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	password = strings.TrimSpace(password)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.compareDummy(password)
			log.Debug("login failed: unknown email")
			return nil, "", ErrInvalidCredentials
		}
		log.Error("failed to look up user for login", slog.String("error", err.Error()))
		return nil, "", NewServiceError("user", "login", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login failed: password mismatch", slog.String("user_id", user.ID.String()))
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token on login",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return nil, "", NewServiceError("user", "login", err)
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

// Logout implements UserService.Logout
func (s *userService) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.tokens.Revoke(ctx, userID, token); err != nil {
		return NewServiceError("user", "logout", err)
	}
	return nil
}

// LogoutAll implements UserService.LogoutAll
func (s *userService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return NewServiceError("user", "logout_all", err)
	}
	return nil
}

// UpdateProfile implements UserService.UpdateProfile
func (s *userService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	updates map[string]json.RawMessage,
) (*domain.User, error) {
	for field := range updates {
		if !allowedProfileUpdates[field] {
			logger.FromContextOrDefault(ctx, s.logger).Debug("rejected profile update",
				slog.String("user_id", userID.String()),
				slog.String("field", field))
			return nil, ErrInvalidUpdates
		}
	}

	return s.updateUser(ctx, "update", userID, func(u *domain.User) error {
		return applyProfileUpdates(u, updates)
	})
}

func applyProfileUpdates(u *domain.User, updates map[string]json.RawMessage) error {
	for field, raw := range updates {
		switch field {
		case "name", "email", "password":
			var v string
			if err := decodeUpdateValue(field, raw, &v, "must be a string"); err != nil {
				return err
			}
			v = strings.TrimSpace(v)
			switch field {
			case "name":
				u.Name = v
			case "email":
				u.Email = v
			case "password":
				if v == "" {
					return domain.ErrEmptyPassword
				}
				u.Password = v
			}
		case "age":
			var age int
			if err := decodeUpdateValue(field, raw, &age, "must be a number"); err != nil {
				return err
			}
			u.Age = age
		}
	}
	return nil
}

// DeleteAccount implements UserService.DeleteAccount
func (s *userService) DeleteAccount(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.deleter.DeleteUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.NewAccountEvent(events.AccountDeleted, user.ID, user.Name, user.Email))
	return user, nil
}

// SetAvatar implements UserService.SetAvatar
func (s *userService) SetAvatar(ctx context.Context, userID uuid.UUID, filename string, data []byte) error {
	avatar, err := s.avatars.Process(filename, data)
	if err != nil {
		return err
	}

	_, err = s.updateUser(ctx, "set_avatar", userID, func(u *domain.User) error {
		u.Avatar = avatar
		return nil
	})
	return err
}

// DeleteAvatar implements UserService.DeleteAvatar
func (s *userService) DeleteAvatar(ctx context.Context, userID uuid.UUID) error {
	_, err := s.updateUser(ctx, "delete_avatar", userID, func(u *domain.User) error {
		u.Avatar = nil
		return nil
	})
	return err
}

// GetAvatar implements UserService.GetAvatar
func (s *userService) GetAvatar(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrAvatarNotFound
		}
		return nil, NewServiceError("user", "get_avatar", err)
	}
	if len(user.Avatar) == 0 {
		return nil, ErrAvatarNotFound
	}
	return user.Avatar, nil
}

// updateUser loads the user, applies mutate and saves. A version conflict
// replays mutate on a fresh copy. Validation and lookup failures are
// returned as is; anything else is wrapped in a ServiceError.
func (s *userService) updateUser(
	ctx context.Context,
	op string,
	userID uuid.UUID,
	mutate func(u *domain.User) error,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for attempt := 1; attempt <= maxUserUpdateAttempts; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return nil, err
			}
			return nil, NewServiceError("user", op, err)
		}

		if err := mutate(user); err != nil {
			return nil, err
		}

		err = s.users.Update(ctx, user)
		switch {
		case err == nil:
			log.Debug("user updated",
				slog.String("user_id", userID.String()),
				slog.String("op", op))
			return user, nil
		case errors.Is(err, store.ErrVersionConflict):
			log.Debug("user changed concurrently, retrying",
				slog.String("user_id", userID.String()),
				slog.Int("attempt", attempt))
			continue
		case errors.Is(err, domain.ErrValidation),
			errors.Is(err, store.ErrEmailExists),
			errors.Is(err, store.ErrUserNotFound):
			return nil, err
		default:
			log.Error("failed to update user",
				slog.String("user_id", userID.String()),
				slog.String("op", op),
				slog.String("error", err.Error()))
			return nil, NewServiceError("user", op, err)
		}
	}

	return nil, NewServiceError("user", op,
		fmt.Errorf("%w: gave up after %d attempts", store.ErrVersionConflict, maxUserUpdateAttempts))
}

func (s *userService) emit(ctx context.Context, event *events.AccountEvent) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit account event",
			slog.String("event_type", event.Type),
			slog.String("user_id", event.UserID.String()),
			slog.String("error", err.Error()))
	}
}
