package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// User validation errors. Each wraps ErrValidation.
var (
	ErrEmptyUserID          = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	ErrEmptyName            = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrEmptyEmail           = fmt.Errorf("%w: email cannot be empty", ErrValidation)
	ErrInvalidEmail         = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrNegativeAge          = fmt.Errorf("%w: age must be a positive number", ErrValidation)
	ErrEmptyPassword        = fmt.Errorf("%w: password cannot be empty", ErrValidation)
	ErrPasswordTooShort     = fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	ErrPasswordTooLong      = fmt.Errorf("%w: password must be at most %d characters long", ErrValidation, MaxPasswordLength)
	ErrPasswordContainsWord = fmt.Errorf("%w: password cannot contain \"password\"", ErrValidation)
)

const (
	// MinPasswordLength is the shortest accepted password, after trimming.
	MinPasswordLength = 7
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)

var validate = validator.New()

// SessionToken is one active session belonging to a user. The token string
// is the signed value handed to the client at login.
type SessionToken struct {
	Token string `json:"token"`
}

// User represents a registered account.
//
// Password holds a plaintext password only while a create or update is in
// flight; stores hash it into HashedPassword and never persist it.
type User struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Age            int            `json:"age"`
	Password       string         `json:"-"`
	HashedPassword string         `json:"-"`
	Tokens         []SessionToken `json:"-"`
	Avatar         []byte         `json:"-"`
	Version        int64          `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewUser creates a new User with a fresh ID and timestamps. Name and email
// are trimmed and the email is lower-cased before validation.
//
// The plaintext password stays on the user until a store hashes it.
func NewUser(name, email, password string, age int) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Age:       age,
		Password:  strings.TrimSpace(password),
		Tokens:    []SessionToken{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}
	if err := validate.Var(u.Email, "email"); err != nil {
		return ErrInvalidEmail
	}

	if u.Age < 0 {
		return ErrNegativeAge
	}

	if u.Password != "" {
		return ValidatePassword(u.Password)
	}

	// Existing users carry only the hash.
	if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// ValidatePassword applies the password policy: at least MinPasswordLength
// characters after trimming, at most MaxPasswordLength bytes, and no
// occurrence of the word "password" in any case.
func ValidatePassword(password string) error {
	password = strings.TrimSpace(password)
	switch {
	case password == "":
		return ErrEmptyPassword
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	case strings.Contains(strings.ToLower(password), "password"):
		return ErrPasswordContainsWord
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasToken reports whether token is one of the user's active sessions.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t.Token == token {
			return true
		}
	}
	return false
}

// AddToken appends a session to the end of the token list.
func (u *User) AddToken(token string) {
	u.Tokens = append(u.Tokens, SessionToken{Token: token})
}

// RemoveToken drops every entry equal to token and reports whether the list
// changed.
func (u *User) RemoveToken(token string) bool {
	kept := make([]SessionToken, 0, len(u.Tokens))
	for _, t := range u.Tokens {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	removed := len(kept) != len(u.Tokens)
	u.Tokens = kept
	return removed
}

// ClearTokens ends every session.
func (u *User) ClearTokens() {
	u.Tokens = []SessionToken{}
}
