package secretpages

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// SessionUserKey is the session variable holding the logged in user's
// id. Only the id is ever persisted in the session; the full record is
// rehydrated from the user store on each resolve.
const SessionUserKey = "loggedInUserId"

// Sessions issues and resolves server-side sessions for authenticated
// principals.
type Sessions struct {
	Manager *scs.SessionManager
	Store   UserStore
}

// NewSessions builds a session manager delivering a browser-session
// cookie (no persistence past browser close). sessionStore may be nil,
// in which case scs keeps session data in memory.
func NewSessions(store UserStore, sessionStore scs.Store) *Sessions {
	m := scs.New()
	m.Lifetime = 24 * time.Hour
	m.Cookie.Persist = false
	m.Cookie.HttpOnly = true
	m.Cookie.SameSite = http.SameSiteLaxMode
	if sessionStore != nil {
		m.Store = sessionStore
	}
	return &Sessions{Manager: m, Store: store}
}

// Login makes user the session principal. The session token is renewed
// so a pre-login token never survives authentication.
func (s *Sessions) Login(r *http.Request, user *User) error {
	if err := s.Manager.RenewToken(r.Context()); err != nil {
		return err
	}
	s.Manager.Put(r.Context(), SessionUserKey, user.ID)
	return nil
}

// Resolve returns the user the session belongs to, or
// ErrUnauthenticated when the session carries no principal or the
// referenced record no longer exists.
func (s *Sessions) Resolve(ctx context.Context) (*User, error) {
	id := s.Manager.GetString(ctx, SessionUserKey)
	if id == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.Store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// Logout destroys the session.
func (s *Sessions) Logout(ctx context.Context) error {
	return s.Manager.Destroy(ctx)
}
