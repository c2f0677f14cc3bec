package secretpages

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// LocalAuth verifies username/password credentials against the user
// store.
type LocalAuth struct {
	Store UserStore

	// Cost is the bcrypt cost used when hashing new passwords. Defaults
	// to bcrypt.DefaultCost (10).
	Cost int
}

func (a *LocalAuth) cost() int {
	if a.Cost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return a.Cost
}

// Register creates a local user. The plaintext is hashed with a per-call
// random salt and is never persisted or logged.
func (a *LocalAuth) Register(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required: %w", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return a.Store.CreateLocalUser(ctx, username, string(hash))
}

// Verify checks a username/password pair. Unknown usernames and wrong
// passwords both return ErrInvalidCredentials.
func (a *LocalAuth) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := a.Store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		// OAuth-only account; it has no password to check.
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
