// Package web wires the auth flows, session layer and user store into
// the site's HTTP surface.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	sp "github.com/secretpages/secretpages"
	"github.com/secretpages/secretpages/oauth2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures a Server. Store, Local and Sessions are required;
// the OAuth credential fields may be left empty to fall back to the
// environment.
type Options struct {
	Store    sp.UserStore
	Local    *sp.LocalAuth
	Sessions *sp.Sessions
	Tokens   *sp.AuthTokens
	Logger   *slog.Logger

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallback     string

	FacebookAppID     string
	FacebookAppSecret string
	FacebookCallback  string
}

// Server serves the site: public pages, register/login, the secrets
// wall and the OAuth redirect/callback pairs.
type Server struct {
	store    sp.UserStore
	local    *sp.LocalAuth
	sessions *sp.Sessions
	tokens   *sp.AuthTokens
	auth     *sp.Middleware
	google   *oauth2.GoogleOAuth2
	facebook *oauth2.FacebookOAuth2
	tmpl     *template.Template
	logger   *slog.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    opts.Store,
		local:    opts.Local,
		sessions: opts.Sessions,
		tokens:   opts.Tokens,
		logger:   logger,
		tmpl:     template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
	s.auth = &sp.Middleware{
		Sessions: opts.Sessions,
		Tokens:   opts.Tokens,
		LoginURL: "/login",
		Logger:   logger,
	}
	s.google = oauth2.NewGoogleOAuth2(
		opts.GoogleClientID, opts.GoogleClientSecret, opts.GoogleCallback, s.completeOAuth)
	s.facebook = oauth2.NewFacebookOAuth2(
		opts.FacebookAppID, opts.FacebookAppSecret, opts.FacebookCallback, s.completeOAuth)
	return s
}

// Google exposes the google flow for endpoint overrides in tests.
func (s *Server) Google() *oauth2.GoogleOAuth2 { return s.google }

// Facebook exposes the facebook flow for endpoint overrides in tests.
func (s *Server) Facebook() *oauth2.FacebookOAuth2 { return s.facebook }

// Handler builds the site router. The whole router runs inside the
// session manager's LoadAndSave wrapper so every handler can touch the
// session.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverErrors)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)

	r.HandleFunc("/auth/google", s.google.Begin).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/secrets", s.google.HandleCallback).Methods(http.MethodGet)
	r.HandleFunc("/auth/facebook", s.facebook.Begin).Methods(http.MethodGet)
	r.HandleFunc("/auth/facebook/secrets", s.facebook.HandleCallback).Methods(http.MethodGet)

	r.Handle("/secrets", s.auth.RequireUser(http.HandlerFunc(s.handleSecrets))).Methods(http.MethodGet)
	r.Handle("/submit", s.auth.RequireUser(http.HandlerFunc(s.handleSubmitForm))).Methods(http.MethodGet)
	r.Handle("/submit", s.auth.RequireUser(http.HandlerFunc(s.handleSubmit))).Methods(http.MethodPost)

	return s.sessions.Manager.LoadAndSave(r)
}

func (s *Server) recoverErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic serving request", "path", r.URL.Path, "panic", rec)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("rendering template", "template", name, "err", err)
	}
}
