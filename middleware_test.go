package secretpages_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sp "github.com/secretpages/secretpages"
	"github.com/secretpages/secretpages/stores/memory"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func whoamiHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := sp.UserFrom(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.ID))
	})
}

func TestRequireUserRedirectsAnonymous(t *testing.T) {
	sessions := sp.NewSessions(memory.New(), nil)
	mw := &sp.Middleware{Sessions: sessions}

	handler := sessions.Manager.LoadAndSave(mw.RequireUser(whoamiHandler(t)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secrets", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireUserAcceptsAuthTokenCookie(t *testing.T) {
	store := memory.New()
	user, err := store.CreateLocalUser(context.Background(), "alice@example.com", "hash")
	require.NoError(t, err)

	sessions := sp.NewSessions(store, nil)
	tokens := &sp.AuthTokens{Issuer: "secretpages", SecretKey: "test-secret"}
	mw := &sp.Middleware{Sessions: sessions, Tokens: tokens}

	signed, err := tokens.Issue(user.ID)
	require.NoError(t, err)

	handler := sessions.Manager.LoadAndSave(mw.RequireUser(whoamiHandler(t)))

	req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	req.AddCookie(&http.Cookie{Name: sp.AuthTokenCookie, Value: signed})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, rec.Body.String())
}

func TestRequireUserRejectsTamperedToken(t *testing.T) {
	store := memory.New()
	sessions := sp.NewSessions(store, nil)
	tokens := &sp.AuthTokens{SecretKey: "test-secret"}
	mw := &sp.Middleware{Sessions: sessions, Tokens: tokens}

	forged, err := (&sp.AuthTokens{SecretKey: "other-key"}).Issue("user-1")
	require.NoError(t, err)

	handler := sessions.Manager.LoadAndSave(mw.RequireUser(whoamiHandler(t)))

	req := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	req.AddCookie(&http.Cookie{Name: sp.AuthTokenCookie, Value: forged})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestExtractUserNeverRedirects(t *testing.T) {
	sessions := sp.NewSessions(memory.New(), nil)
	mw := &sp.Middleware{Sessions: sessions}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := sp.UserFrom(r.Context())
		assert.False(t, ok)
		w.WriteHeader(http.StatusOK)
	})
	handler := sessions.Manager.LoadAndSave(mw.ExtractUser(next))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
