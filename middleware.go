package secretpages

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type userContextKey struct{}

// Middleware resolves the authenticated user for each request and
// enforces login on protected routes. It must run inside the session
// manager's LoadAndSave wrapper.
type Middleware struct {
	Sessions *Sessions

	// Tokens, when set, lets a signed auth-token cookie stand in for a
	// server-side session.
	Tokens *AuthTokens

	// LoginURL is where unauthenticated requests to protected routes are
	// redirected. Defaults to "/login".
	LoginURL string

	Logger *slog.Logger
}

func (m *Middleware) loginURL() string {
	if m.LoginURL == "" {
		return "/login"
	}
	return m.LoginURL
}

func (m *Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// CurrentUser resolves the principal from the session, falling back to
// the auth-token cookie.
func (m *Middleware) CurrentUser(r *http.Request) (*User, error) {
	if user, ok := UserFrom(r.Context()); ok {
		return user, nil
	}
	user, err := m.Sessions.Resolve(r.Context())
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUnauthenticated) {
		return nil, err
	}
	if m.Tokens == nil {
		return nil, ErrUnauthenticated
	}
	for _, cookie := range r.CookiesNamed(AuthTokenCookie) {
		if cookie.Value == "" {
			continue
		}
		userID, err := m.Tokens.Verify(cookie.Value)
		if err != nil {
			m.logger().Warn("rejected auth token cookie", "err", err)
			continue
		}
		if user, err := m.Sessions.Store.GetUserByID(r.Context(), userID); err == nil {
			return user, nil
		}
	}
	return nil, ErrUnauthenticated
}

// ExtractUser makes the resolved user, if any, available to downstream
// handlers via UserFrom. It never redirects.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := m.CurrentUser(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser enforces that a user is logged in, redirecting to the
// login page otherwise. The resolved user is injected into the request
// context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.CurrentUser(r)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				m.logger().Error("resolving session principal", "err", err)
			}
			http.Redirect(w, r, m.loginURL(), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFrom returns the user injected by the middleware, if any.
func UserFrom(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok
}
