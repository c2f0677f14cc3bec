package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"

	sp "github.com/secretpages/secretpages"
	"github.com/secretpages/secretpages/oauth2"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home.html", nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "register.html", nil)
}

// handleRegister creates a local account and logs it straight in.
// Failures (duplicate username included) send the visitor back to the
// register page to try again.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	user, err := s.local.Register(r.Context(), username, password)
	if err != nil {
		s.logger.Warn("registration failed", "username", username, "err", err)
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	s.establishSession(w, r, user)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	user, err := s.local.Verify(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, sp.ErrInvalidCredentials) {
			s.logger.Info("login rejected", "username", username)
		} else {
			s.logger.Error("login failed", "username", username, "err", err)
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.establishSession(w, r, user)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context()); err != nil {
		s.logger.Error("destroying session", "err", err)
	}
	s.clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleSecrets shows every submitted secret, anonymously.
func (s *Server) handleSecrets(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.UsersWithSecrets(r.Context())
	if err != nil {
		s.logger.Error("listing secrets", "err", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, "secrets.html", map[string]any{"Users": users})
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "submit.html", nil)
}

// handleSubmit stores the submitted secret on the logged in user's own
// record, overwriting any earlier one.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := sp.UserFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	secret := r.PostFormValue("secret")
	if secret == "" {
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}
	if err := s.store.SetSecret(r.Context(), user.ID, secret); err != nil {
		s.logger.Error("saving secret", "user", user.ID, "err", err)
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// completeOAuth is the HandleUser callback shared by both providers. A
// visitor who is already logged in gets the provider identity attached
// to their existing account; anyone else is found or created by
// provider id.
func (s *Server) completeOAuth(profile oauth2.Profile, token *xoauth2.Token, w http.ResponseWriter, r *http.Request) {
	var user *sp.User
	var err error
	if current, ok := s.currentUser(r); ok {
		user, err = s.store.AttachProvider(r.Context(), current.ID, profile.Provider, profile.ID)
		if errors.Is(err, sp.ErrDuplicateProviderID) {
			s.logger.Warn("provider identity already linked elsewhere",
				"provider", profile.Provider, "user", current.ID)
			http.Redirect(w, r, "/secrets", http.StatusFound)
			return
		}
	} else {
		user, err = s.store.EnsureProviderUser(r.Context(), profile.Provider, profile.ID)
	}
	if err != nil {
		s.logger.Error("completing oauth login", "provider", profile.Provider, "err", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.establishSession(w, r, user)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) currentUser(r *http.Request) (*sp.User, bool) {
	user, err := s.auth.CurrentUser(r)
	if err != nil {
		return nil, false
	}
	return user, true
}

// establishSession logs user into the server-side session and sets the
// signed auth-token cookie alongside it.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, user *sp.User) {
	if err := s.sessions.Login(r, user); err != nil {
		s.logger.Error("starting session", "user", user.ID, "err", err)
	}
	if s.tokens == nil {
		return
	}
	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("issuing auth token", "user", user.ID, "err", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sp.AuthTokenCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    sp.AuthTokenCookie,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}
