package secretpages

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Supported authentication providers.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

var (
	// ErrDuplicateUsername is returned when a registration collides with
	// an existing username.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrDuplicateProviderID is returned when a provider identity is
	// already linked to a different account.
	ErrDuplicateProviderID = errors.New("provider identity already linked")

	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords, without distinguishing which.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned by store lookups that match nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthenticated is returned when a request carries no resolvable
	// session principal.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrStoreUnavailable wraps failures to reach the backing store.
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// User is the single persisted entity. A record may hold any combination
// of identification methods (local credentials, Google, Facebook) but
// needs at least one to be reachable.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username,omitempty" json:"username,omitempty"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	GoogleID     string    `bson:"google_id,omitempty" json:"-"`
	FacebookID   string    `bson:"facebook_id,omitempty" json:"-"`
	Secret       string    `bson:"secret,omitempty" json:"secret,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// HasSecret reports whether the user has submitted a secret.
func (u *User) HasSecret() bool { return u.Secret != "" }

// NewUserID returns a fresh opaque user id. Ids are assigned by the
// stores at creation and never change.
func NewUserID() string { return uuid.NewString() }

// UserStore manages user records. Username and provider ids are each
// unique when present; backends enforce this with unique indexes.
type UserStore interface {
	// CreateLocalUser creates a user reachable by local credentials.
	// Returns ErrDuplicateUsername if the username is taken.
	CreateLocalUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// EnsureProviderUser looks up a user by (provider, providerID),
	// creating one with only that provider id set when absent. The upsert
	// is idempotent: concurrent first callbacks for the same identity
	// resolve to a single record.
	EnsureProviderUser(ctx context.Context, provider, providerID string) (*User, error)

	// AttachProvider links a provider identity to an existing user.
	// Returns ErrDuplicateProviderID if another account holds it.
	AttachProvider(ctx context.Context, userID, provider, providerID string) (*User, error)

	// SetSecret overwrites the user's secret. Last write wins.
	SetSecret(ctx context.Context, userID, secret string) error

	// UsersWithSecrets returns every user holding a non-empty secret.
	UsersWithSecrets(ctx context.Context) ([]*User, error)
}
