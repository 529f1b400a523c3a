package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIDTokenIssuer(t *testing.T) {
	kp, err := jwtx.GenerateKeyPair()
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	issuer := NewIDTokenIssuer(kp, "https://id.example.org/", 0)
	issuer.Now = func() time.Time { return now }
	require.Equal(t, jwtx.DefaultIDTokenTTL, issuer.TTL)

	grant := Grant{
		AccessToken: Issued{Token: domain.Token{
			AccountID: "acct-1",
			Payload:   &domain.AccessToken{ClientID: "client-1"},
		}},
		Nonce:     "nonce-1",
		SessionID: "sid-1",
		AuthTime:  now.Add(-time.Minute),
	}

	raw, err := issuer.IssueForGrant(grant)
	require.NoError(t, err)

	var claims jwtx.IDTokenClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return kp.Public, nil },
		jwt.WithValidMethods([]string{jwtx.AlgorithmRS256}),
		jwt.WithIssuer("https://id.example.org/"),
		jwt.WithAudience("client-1"),
	)
	require.NoError(t, err)
	require.Equal(t, kp.KeyID, tok.Header["kid"])
	require.Equal(t, "acct-1", claims.Subject)
	require.Equal(t, "nonce-1", claims.Nonce)
	require.Equal(t, "sid-1", claims.SessionID)
	require.Equal(t, now.Add(-time.Minute).Unix(), claims.AuthTime.Unix())
	require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	// jwtx.ParseIDTokenHint accepts our own ID tokens as logout hints.
	require.Equal(t, "client-1", jwtx.AudienceFromHint(raw, kp.Public, "https://id.example.org/", "acct-1"))
}

func TestIDTokenIssuerRequiresSubjectAndAudience(t *testing.T) {
	kp, err := jwtx.GenerateKeyPair()
	require.NoError(t, err)
	issuer := NewIDTokenIssuer(kp, "https://id.example.org/", time.Minute)

	_, err = issuer.Issue("", "client-1", "", time.Time{}, "")
	require.Error(t, err)

	_, err = issuer.IssueForGrant(Grant{})
	require.ErrorIs(t, err, ErrInvalidGrant)
}
