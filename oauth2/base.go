// Package oauth2 implements the redirect/callback flows for the
// federated identity providers.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// Profile is the minimal provider-issued identity handed to the app
// after a successful flow.
type Profile struct {
	Provider string
	ID       string
	Name     string
	Email    string

	// Raw is the provider's full profile document.
	Raw map[string]any
}

// HandleUserFunc is called with the provider profile and token after a
// successful callback. It owns the response (session, redirect).
type HandleUserFunc func(profile Profile, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

// BaseOAuth2 implements the provider-independent parts of the
// authorization-code flow: state cookie, consent redirect, callback
// state verification, code exchange and profile fetch.
type BaseOAuth2 struct {
	Provider   string
	HandleUser HandleUserFunc

	// AuthFailureURL is where failed callbacks are redirected. Defaults
	// to "/login".
	AuthFailureURL string

	// UserInfoURL is the endpoint profiles are fetched from. Set by the
	// provider constructors; overridable for testing.
	UserInfoURL string

	// HTTPClient overrides http.DefaultClient for the token exchange and
	// profile fetch. Used by tests.
	HTTPClient *http.Client

	oauthConfig oauth2.Config

	// extractID pulls the provider's user id out of the raw profile.
	extractID func(raw map[string]any) string
}

// Config exposes the underlying oauth2 config so tests can point the
// endpoints at a mock provider.
func (b *BaseOAuth2) Config() *oauth2.Config { return &b.oauthConfig }

// Begin sets the state cookie and redirects to the provider's consent
// screen.
func (b *BaseOAuth2) Begin(w http.ResponseWriter, r *http.Request) {
	state := generateStateCookie(w)
	http.Redirect(w, r, b.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes the flow: verifies state, exchanges the code,
// fetches the profile and hands the result to HandleUser. Any failure
// redirects to AuthFailureURL.
func (b *BaseOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := b.completeCallback(w, r); err != nil {
		slog.Warn("oauth callback failed", "provider", b.Provider, "err", err)
		clearStateCookie(w)
		http.Redirect(w, r, b.failureURL(), http.StatusTemporaryRedirect)
	}
}

func (b *BaseOAuth2) completeCallback(w http.ResponseWriter, r *http.Request) error {
	state, _ := r.Cookie(stateCookie)
	if state == nil {
		return fmt.Errorf("missing oauth state cookie")
	}
	if r.FormValue("state") != state.Value {
		return fmt.Errorf("oauth state mismatch")
	}
	// The state is single use; drop it as soon as it has been checked.
	clearStateCookie(w)

	token, err := b.oauthConfig.Exchange(b.exchangeContext(r), r.FormValue("code"))
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}
	raw, err := b.fetchProfile(token)
	if err != nil {
		return err
	}

	var id string
	if b.extractID != nil {
		id = b.extractID(raw)
	}
	if id == "" {
		return fmt.Errorf("provider profile has no id")
	}

	profile := Profile{Provider: b.Provider, ID: id, Raw: raw}
	profile.Name, _ = raw["name"].(string)
	profile.Email, _ = raw["email"].(string)
	b.HandleUser(profile, token, w, r)
	return nil
}

func (b *BaseOAuth2) fetchProfile(token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, b.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request returned %d", resp.StatusCode)
	}
	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return raw, nil
}

func (b *BaseOAuth2) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// exchangeContext lets an injected client drive the token exchange.
func (b *BaseOAuth2) exchangeContext(r *http.Request) context.Context {
	if b.HTTPClient == nil {
		return r.Context()
	}
	return context.WithValue(r.Context(), oauth2.HTTPClient, b.HTTPClient)
}

func (b *BaseOAuth2) failureURL() string {
	if b.AuthFailureURL == "" {
		return "/login"
	}
	return b.AuthFailureURL
}
