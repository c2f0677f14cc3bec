package secretpages_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sp "github.com/secretpages/secretpages"
)

func TestAuthTokensRoundTrip(t *testing.T) {
	tokens := &sp.AuthTokens{Issuer: "secretpages", SecretKey: "test-secret"}

	signed, err := tokens.Issue("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	sub, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestAuthTokensRejectsWrongKey(t *testing.T) {
	issuer := &sp.AuthTokens{SecretKey: "key-one"}
	verifier := &sp.AuthTokens{SecretKey: "key-two"}

	signed, err := issuer.Issue("user-42")
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.Error(t, err)
}

func TestAuthTokensRejectsExpired(t *testing.T) {
	tokens := &sp.AuthTokens{SecretKey: "test-secret", TTL: -time.Minute}

	signed, err := tokens.Issue("user-42")
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	assert.Error(t, err)
}

func TestAuthTokensRejectsGarbage(t *testing.T) {
	tokens := &sp.AuthTokens{SecretKey: "test-secret"}
	_, err := tokens.Verify("not.a.jwt")
	assert.Error(t, err)
}
