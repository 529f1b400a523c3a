package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenExpiryBoundary(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := Token{CreatedAt: t0, TTL: time.Hour, Payload: &AccessToken{}}

	require.Equal(t, t0.Add(time.Hour), tok.ExpiresAt())
	require.False(t, tok.ExpiredAt(t0))
	require.False(t, tok.ExpiredAt(t0.Add(time.Hour-time.Millisecond)))
	require.True(t, tok.ExpiredAt(t0.Add(time.Hour)))
	require.True(t, tok.ExpiredAt(t0.Add(2*time.Hour)))
}

func TestTokenKindAndPayload(t *testing.T) {
	for _, kind := range []TokenKind{
		KindAuthorizationCode, KindAccessToken, KindRefreshToken, KindOneTimeToken, KindSidToken,
	} {
		p := NewPayload(kind)
		require.NotNil(t, p, kind)
		require.Equal(t, kind, Token{Payload: p}.Kind())
	}
	require.Nil(t, NewPayload("bogus"))
	require.Empty(t, Token{}.Kind())

	tok := Token{Payload: &RefreshToken{ClientID: "c"}}
	rt, ok := PayloadAs[*RefreshToken](tok)
	require.True(t, ok)
	require.Equal(t, "c", rt.ClientID)

	_, ok = PayloadAs[*AccessToken](tok)
	require.False(t, ok)
}

func TestTokenLineage(t *testing.T) {
	sid := Token{ID: "sid"}
	code := Token{ID: "code", AncestorIDs: sid.Lineage()}
	access := Token{ID: "access", AncestorIDs: code.Lineage()}

	require.Equal(t, []string{"sid"}, code.AncestorIDs)
	require.Equal(t, []string{"sid", "code"}, access.AncestorIDs)

	// Lineage must not alias the parent's slice.
	l := code.Lineage()
	l[0] = "changed"
	require.Equal(t, []string{"sid"}, code.AncestorIDs)
}
