package oauth2

import (
	"cmp"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookOAuth2 signs users in with their Facebook account.
type FacebookOAuth2 struct {
	BaseOAuth2
}

// NewFacebookOAuth2 configures the Facebook flow. Empty credentials fall
// back to the FACEBOOK_APP_ID, FACEBOOK_APP_SECRET and FACEBOOK_CALLBACK
// environment variables.
func NewFacebookOAuth2(appID, appSecret, callbackURL string, handleUser HandleUserFunc) *FacebookOAuth2 {
	out := &FacebookOAuth2{
		BaseOAuth2: BaseOAuth2{
			Provider:    "facebook",
			HandleUser:  handleUser,
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
			extractID: func(raw map[string]any) string {
				id, _ := raw["id"].(string)
				return id
			},
		},
	}
	out.oauthConfig = oauth2.Config{
		ClientID:     cmp.Or(appID, os.Getenv("FACEBOOK_APP_ID")),
		ClientSecret: cmp.Or(appSecret, os.Getenv("FACEBOOK_APP_SECRET")),
		RedirectURL:  cmp.Or(callbackURL, os.Getenv("FACEBOOK_CALLBACK")),
		Scopes:       []string{"public_profile"},
		Endpoint:     facebook.Endpoint,
	}
	return out
}
