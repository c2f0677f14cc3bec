// Package memory provides an in-process user store used by tests and
// the memory backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	sp "github.com/secretpages/secretpages"
)

// Store keeps users in maps guarded by a single mutex. The mutex is
// held across lookup-then-insert so uniqueness checks cannot race.
type Store struct {
	mu        sync.Mutex
	users     map[string]*sp.User
	usernames map[string]string
	providers map[string]string
}

func New() *Store {
	return &Store{
		users:     map[string]*sp.User{},
		usernames: map[string]string{},
		providers: map[string]string{},
	}
}

func providerKey(provider, providerID string) string {
	return provider + "/" + providerID
}

func copyUser(u *sp.User) *sp.User {
	out := *u
	return &out
}

func (s *Store) CreateLocalUser(ctx context.Context, username, passwordHash string) (*sp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernames[username]; ok {
		return nil, fmt.Errorf("username %q: %w", username, sp.ErrDuplicateUsername)
	}
	now := time.Now()
	user := &sp.User{
		ID:           sp.NewUserID(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	s.usernames[username] = user.ID
	return copyUser(user), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*sp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sp.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*sp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, sp.ErrUserNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) EnsureProviderUser(ctx context.Context, provider, providerID string) (*sp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.providers[providerKey(provider, providerID)]; ok {
		return copyUser(s.users[id]), nil
	}
	now := time.Now()
	user := &sp.User{
		ID:        sp.NewUserID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := setProviderID(user, provider, providerID); err != nil {
		return nil, err
	}
	s.users[user.ID] = user
	s.providers[providerKey(provider, providerID)] = user.ID
	return copyUser(user), nil
}

func (s *Store) AttachProvider(ctx context.Context, userID, provider, providerID string) (*sp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sp.ErrUserNotFound
	}
	key := providerKey(provider, providerID)
	if owner, claimed := s.providers[key]; claimed && owner != userID {
		return nil, fmt.Errorf("%s id %q: %w", provider, providerID, sp.ErrDuplicateProviderID)
	}
	if err := setProviderID(user, provider, providerID); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now()
	s.providers[key] = userID
	return copyUser(user), nil
}

func (s *Store) SetSecret(ctx context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return sp.ErrUserNotFound
	}
	user.Secret = secret
	user.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UsersWithSecrets(ctx context.Context) ([]*sp.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*sp.User
	for _, user := range s.users {
		if user.HasSecret() {
			out = append(out, copyUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func setProviderID(user *sp.User, provider, providerID string) error {
	switch provider {
	case sp.ProviderGoogle:
		user.GoogleID = providerID
	case sp.ProviderFacebook:
		user.FacebookID = providerID
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	return nil
}
