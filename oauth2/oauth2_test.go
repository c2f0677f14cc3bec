package oauth2

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
)

// mockProvider stands in for the real authorization server: it issues a
// static token and serves a canned profile document.
func mockProvider(t *testing.T, profile map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-code", r.FormValue("code"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-access-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// pointAtMock rewires a provider's endpoints at the mock server.
func pointAtMock(b *BaseOAuth2, srv *httptest.Server) {
	cfg := b.Config()
	cfg.Endpoint = xoauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	}
	b.UserInfoURL = srv.URL + "/userinfo"
	b.HTTPClient = srv.Client()
}

func TestBeginSetsStateAndRedirects(t *testing.T) {
	google := NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets", nil)
	srv := mockProvider(t, nil)
	pointAtMock(&google.BaseOAuth2, srv)

	rec := httptest.NewRecorder()
	google.Begin(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c
		}
	}
	require.NotNil(t, state, "state cookie not set")
	require.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), srv.URL+"/auth"))
	assert.Equal(t, state.Value, loc.Query().Get("state"))
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
}

func TestCallbackDeliversProfile(t *testing.T) {
	srv := mockProvider(t, map[string]any{
		"id":    "g-12345",
		"name":  "Alice Example",
		"email": "alice@example.com",
	})

	var got Profile
	var gotToken *xoauth2.Token
	google := NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets",
		func(profile Profile, token *xoauth2.Token, w http.ResponseWriter, r *http.Request) {
			got = profile
			gotToken = token
			w.WriteHeader(http.StatusOK)
		})
	pointAtMock(&google.BaseOAuth2, srv)

	req := httptest.NewRequest(http.MethodGet,
		"/auth/google/secrets?state=test-state&code=test-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "test-state"})
	rec := httptest.NewRecorder()
	google.HandleCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "google", got.Provider)
	assert.Equal(t, "g-12345", got.ID)
	assert.Equal(t, "Alice Example", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)
	require.NotNil(t, gotToken)
	assert.Equal(t, "test-access-token", gotToken.AccessToken)
}

func TestCallbackConsumesStateCookie(t *testing.T) {
	srv := mockProvider(t, map[string]any{"id": "g-12345"})

	google := NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/secrets",
		func(profile Profile, token *xoauth2.Token, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	pointAtMock(&google.BaseOAuth2, srv)

	req := httptest.NewRequest(http.MethodGet,
		"/auth/google/secrets?state=test-state&code=test-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "test-state"})
	rec := httptest.NewRecorder()
	google.HandleCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared, "state cookie not cleared after success")
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	called := false
	google := NewGoogleOAuth2("client-id", "client-secret", "",
		func(profile Profile, token *xoauth2.Token, w http.ResponseWriter, r *http.Request) {
			called = true
		})

	req := httptest.NewRequest(http.MethodGet,
		"/auth/google/secrets?state=evil&code=test-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "good"})
	rec := httptest.NewRecorder()
	google.HandleCallback(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, called)
}

func TestCallbackRejectsMissingStateCookie(t *testing.T) {
	google := NewGoogleOAuth2("client-id", "client-secret", "", nil)
	google.AuthFailureURL = "/signin"

	req := httptest.NewRequest(http.MethodGet,
		"/auth/google/secrets?state=whatever&code=test-code", nil)
	rec := httptest.NewRecorder()
	google.HandleCallback(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
}

func TestCallbackRejectsProfileWithoutID(t *testing.T) {
	srv := mockProvider(t, map[string]any{"name": "No ID"})

	called := false
	facebook := NewFacebookOAuth2("app-id", "app-secret", "",
		func(profile Profile, token *xoauth2.Token, w http.ResponseWriter, r *http.Request) {
			called = true
		})
	pointAtMock(&facebook.BaseOAuth2, srv)

	req := httptest.NewRequest(http.MethodGet,
		"/auth/facebook/secrets?state=test-state&code=test-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "test-state"})
	rec := httptest.NewRecorder()
	facebook.HandleCallback(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.False(t, called)
}

func TestProviderDefaults(t *testing.T) {
	google := NewGoogleOAuth2("id", "secret", "http://localhost/cb", nil)
	assert.Equal(t, "google", google.Provider)
	assert.Contains(t, google.Config().Scopes, "https://www.googleapis.com/auth/userinfo.profile")

	facebook := NewFacebookOAuth2("id", "secret", "http://localhost/cb", nil)
	assert.Equal(t, "facebook", facebook.Provider)
	assert.Contains(t, facebook.Config().Scopes, "public_profile")
	assert.Contains(t, facebook.UserInfoURL, "graph.facebook.com")
}
