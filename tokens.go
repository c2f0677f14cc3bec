package secretpages

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthTokenCookie is the cookie carrying the signed auth token set
// alongside the session on login.
const AuthTokenCookie = "authToken"

// AuthTokens signs and verifies the JWT carried in the auth-token
// cookie. The middleware accepts a valid token as a fallback when no
// server-side session resolves.
type AuthTokens struct {
	Issuer    string
	SecretKey string

	// TTL of issued tokens. Zero means 24 hours; a negative TTL issues
	// tokens that are already expired.
	TTL time.Duration
}

func (t *AuthTokens) ttl() time.Duration {
	if t.TTL == 0 {
		return 24 * time.Hour
	}
	return t.TTL
}

// Issue signs a token whose subject is the user id.
func (t *AuthTokens) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iss": t.Issuer,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl()).Unix(),
	})
	return token.SignedString([]byte(t.SecretKey))
}

// Verify parses tokenString and returns the user id it was issued for.
func (t *AuthTokens) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(t.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
