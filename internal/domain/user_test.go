package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser("  Ann ", "  Ann@Example.COM ", "sevenchars", 0)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "sevenchars", user.Password)
	assert.Empty(t, user.HashedPassword)
	assert.Empty(t, user.Tokens)
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())
}

func TestNewUserValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		age      int
		wantErr  error
	}{
		{"empty name", "   ", "ann@example.com", "sevenchars", 0, ErrEmptyName},
		{"empty email", "Ann", "", "sevenchars", 0, ErrEmptyEmail},
		{"invalid email", "Ann", "not-an-email", "sevenchars", 0, ErrInvalidEmail},
		{"negative age", "Ann", "ann@example.com", "sevenchars", -1, ErrNegativeAge},
		{"empty password", "Ann", "ann@example.com", "", 0, ErrEmptyPassword},
		{"short password", "Ann", "ann@example.com", "short", 0, ErrPasswordTooShort},
		{"contains password", "Ann", "ann@example.com", "myPassWord1", 0, ErrPasswordContainsWord},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user, err := NewUser(tt.userName, tt.email, tt.password, tt.age)
			require.Error(t, err)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation, "every user validation error should wrap ErrValidation")
		})
	}
}

func TestUserValidateExistingUser(t *testing.T) {
	t.Parallel()

	user := User{
		ID:             uuid.New(),
		Name:           "Ann",
		Email:          "ann@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
	}
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)

	user.ID = uuid.Nil
	assert.ErrorIs(t, user.Validate(), ErrEmptyUserID)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		password string
		wantErr  error
	}{
		{"sevenchars", nil},
		{"1234567", nil},
		{"  123456  ", ErrPasswordTooShort},
		{"PASSWORD123", ErrPasswordContainsWord},
		{"mypassword", ErrPasswordContainsWord},
		{string(make([]byte, 73)), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if tt.wantErr == nil {
			assert.NoError(t, err, "password %q", tt.password)
			continue
		}
		assert.True(t, errors.Is(err, tt.wantErr), "password %q: got %v, want %v", tt.password, err, tt.wantErr)
	}
}

func TestUserTokens(t *testing.T) {
	t.Parallel()

	user := &User{}
	user.AddToken("t1")
	user.AddToken("t2")
	user.AddToken("t1")

	assert.True(t, user.HasToken("t1"))
	assert.True(t, user.HasToken("t2"))
	assert.False(t, user.HasToken("t3"))

	assert.False(t, user.RemoveToken("t3"), "removing an absent token is a no-op")
	assert.Len(t, user.Tokens, 3)

	assert.True(t, user.RemoveToken("t1"))
	assert.False(t, user.HasToken("t1"))
	assert.Equal(t, []SessionToken{{Token: "t2"}}, user.Tokens)

	user.ClearTokens()
	assert.Empty(t, user.Tokens)
	assert.False(t, user.HasToken("t2"))
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "bob@example.com", NormalizeEmail("  BOB@Example.com\n"))
}
