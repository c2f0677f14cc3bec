package secretpages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	sp "github.com/secretpages/secretpages"
	"github.com/secretpages/secretpages/stores/memory"
)

func TestLocalRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	auth := &sp.LocalAuth{Store: memory.New()}

	user, err := auth.Register(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Username)
	assert.NotEqual(t, "hunter2", user.PasswordHash)

	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	got, err := auth.Verify(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestLocalVerifyWrongPassword(t *testing.T) {
	ctx := context.Background()
	auth := &sp.LocalAuth{Store: memory.New()}

	_, err := auth.Register(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = auth.Verify(ctx, "alice@example.com", "letmein")
	assert.ErrorIs(t, err, sp.ErrInvalidCredentials)
}

func TestLocalVerifyUnknownUser(t *testing.T) {
	auth := &sp.LocalAuth{Store: memory.New()}
	_, err := auth.Verify(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, sp.ErrInvalidCredentials)
}

func TestLocalRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	auth := &sp.LocalAuth{Store: memory.New()}

	_, err := auth.Register(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, sp.ErrDuplicateUsername)
}

func TestLocalRegisterRejectsEmptyCredentials(t *testing.T) {
	auth := &sp.LocalAuth{Store: memory.New()}
	_, err := auth.Register(context.Background(), "", "hunter2")
	assert.ErrorIs(t, err, sp.ErrInvalidCredentials)
	_, err = auth.Register(context.Background(), "alice@example.com", "")
	assert.ErrorIs(t, err, sp.ErrInvalidCredentials)
}

func TestLocalVerifyOAuthOnlyAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user, err := store.EnsureProviderUser(ctx, sp.ProviderGoogle, "g-123")
	require.NoError(t, err)
	require.Empty(t, user.PasswordHash)

	auth := &sp.LocalAuth{Store: store}
	_, err = auth.Verify(ctx, user.Username, "anything")
	assert.ErrorIs(t, err, sp.ErrInvalidCredentials)
}
