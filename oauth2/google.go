package oauth2

import (
	"cmp"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleOAuth2 signs users in with their Google account.
type GoogleOAuth2 struct {
	BaseOAuth2
}

// NewGoogleOAuth2 configures the Google flow. Empty credentials fall
// back to the GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_CALLBACK
// environment variables.
func NewGoogleOAuth2(clientID, clientSecret, callbackURL string, handleUser HandleUserFunc) *GoogleOAuth2 {
	out := &GoogleOAuth2{
		BaseOAuth2: BaseOAuth2{
			Provider:    "google",
			HandleUser:  handleUser,
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			extractID: func(raw map[string]any) string {
				id, _ := raw["id"].(string)
				return id
			},
		},
	}
	out.oauthConfig = oauth2.Config{
		ClientID:     cmp.Or(clientID, os.Getenv("GOOGLE_CLIENT_ID")),
		ClientSecret: cmp.Or(clientSecret, os.Getenv("GOOGLE_CLIENT_SECRET")),
		RedirectURL:  cmp.Or(callbackURL, os.Getenv("GOOGLE_CALLBACK")),
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
	return out
}
