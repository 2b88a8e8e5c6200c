package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	user, err := svc.Register(ctx, " Test@Example.com ", "testpass123", "Test Name")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "testpass123", user.PasswordHash)

	authed, err := svc.Authenticate(ctx, "TEST@example.com", "testpass123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "test@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "testpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "test@example.com", "testpass123", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "TEST@example.com", "otherpass", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "test@example.com", "pw", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "not-an-email", "testpass123", "")
	assert.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	_, err = svc.Register(ctx, "", "testpass123", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	user, err := svc.Register(ctx, "test@example.com", "testpass123", "")
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, err = svc.Authenticate(ctx, "test@example.com", "testpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	user, err := svc.Register(ctx, "test@example.com", "testpass123", "Old")
	require.NoError(t, err)

	name := "New Name"
	password := "newpassword"
	updated, err := svc.Update(ctx, user.ID, UserUpdate{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	_, err = svc.Authenticate(ctx, "test@example.com", "newpassword")
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "test@example.com", "testpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	short := "abc"
	_, err = svc.Update(ctx, user.ID, UserUpdate{Password: &short})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, 9999, UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordTooLong(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	var verr *ValidationError
	_, err := svc.Register(ctx, "long@example.com", strings.Repeat("a", 80), "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	// 72 Zeichen, aber 144 Bytes
	_, err = svc.Register(ctx, "umlaut@example.com", strings.Repeat("ä", 72), "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	user, err := svc.Register(ctx, "test@example.com", "testpass123", "")
	require.NoError(t, err)
	long := strings.Repeat("a", 80)
	_, err = svc.Update(ctx, user.ID, UserUpdate{Password: &long})
	assert.ErrorIs(t, err, ErrValidation)
	umlauts := strings.Repeat("ä", 72)
	_, err = svc.Update(ctx, user.ID, UserUpdate{Password: &umlauts})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterValidationMessages(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		field    string
		message  string
	}{
		{"blank email", " ", "testpass123", "email", "This field may not be blank."},
		{"invalid email", "nope", "testpass123", "email", "Enter a valid email address."},
		{"short password", "a@example.com", "pw", "password", "Ensure this field has at least 5 characters."},
		{"long password", "a@example.com", strings.Repeat("x", 73), "password", "Ensure this field has no more than 72 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			_, err := svc.Register(ctx, tt.email, tt.password, "")
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}
