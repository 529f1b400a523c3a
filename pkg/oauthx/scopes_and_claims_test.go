package oauthx_test

import (
	"slices"
	"testing"

	"github.com/aussiebroadwan/idp/pkg/oauthx"
	"github.com/stretchr/testify/require"
)

func sc(scopes []string, claims []string) oauthx.ScopesAndClaims {
	return oauthx.NewScopesAndClaims(scopes, claims)
}

func TestNewScopesAndClaims(t *testing.T) {
	t.Run("zero value is empty", func(t *testing.T) {
		var zero oauthx.ScopesAndClaims
		require.True(t, zero.IsEmpty())
		require.True(t, zero.Equal(sc(nil, nil)))
	})

	t.Run("keeps unknown values as-is", func(t *testing.T) {
		got := sc([]string{"foo", "bar"}, []string{"baz", "qux"})
		require.Equal(t, []string{"bar", "foo"}, got.ScopeIDs())
		require.Equal(t, []string{"baz", "qux"}, got.ClaimNames())
	})

	t.Run("scopes and claims can share names", func(t *testing.T) {
		got := sc([]string{"foo", "bar"}, []string{"foo", "bar"})
		require.Equal(t, []string{"bar", "foo"}, got.ScopeIDs())
		require.Equal(t, []string{"bar", "foo"}, got.ClaimNames())
	})

	t.Run("mapped scopes become claims", func(t *testing.T) {
		got := sc([]string{oauthx.ScopeOpenID, "foo", oauthx.ScopeProfile}, []string{"bar", "baz"})
		require.Equal(t, []string{"foo"}, got.ScopeIDs())

		profile := slices.Collect(oauthx.MapScopesToClaims(slices.Values([]string{oauthx.ScopeProfile})))
		want := sc(nil, append(profile, "bar", "baz"))
		require.Equal(t, want.ClaimNames(), got.ClaimNames())
	})
}

func TestScopesAndClaimsMigrationIsIdempotent(t *testing.T) {
	inputs := []struct {
		scopes []string
		claims []string
	}{
		{nil, nil},
		{[]string{"foo"}, []string{"bar"}},
		{[]string{oauthx.ScopeOpenID, oauthx.ScopeProfile, oauthx.ScopeEmail, "foo"}, []string{"email"}},
		{[]string{oauthx.ScopeAddress, oauthx.ScopePhone, oauthx.ScopeOfflineAccess}, nil},
		{[]string{"name"}, []string{oauthx.ScopeProfile}},
	}

	for _, in := range inputs {
		first := sc(in.scopes, in.claims)
		again := sc(first.ScopeIDs(), first.ClaimNames())
		require.True(t, first.Equal(again), "%v / %v", in.scopes, in.claims)
		require.Equal(t, first.ScopeIDs(), again.ScopeIDs())
		require.Equal(t, first.ClaimNames(), again.ClaimNames())
	}
}

func TestScopesAndClaimsContainsAll(t *testing.T) {
	empty := sc(nil, nil)
	full := sc([]string{"foo", "bar"}, []string{"baz", "qux"})

	tests := []struct {
		name  string
		have  oauthx.ScopesAndClaims
		other oauthx.ScopesAndClaims
		want  bool
	}{
		{"empty contains empty", empty, empty, true},
		{"empty lacks scopes", empty, sc([]string{"foo"}, nil), false},
		{"empty lacks claims", empty, sc(nil, []string{"foo"}), false},
		{"empty lacks both", empty, sc([]string{"foo"}, []string{"bar"}), false},
		{"non-empty contains empty", full, empty, true},
		{"same scopes, no claims", full, sc([]string{"foo", "bar"}, nil), true},
		{"scope subset", full, sc([]string{"foo"}, nil), true},
		{"same claims, no scopes", full, sc(nil, []string{"baz", "qux"}), true},
		{"claim subset", full, sc(nil, []string{"baz"}), true},
		{"identical", full, sc([]string{"foo", "bar"}, []string{"baz", "qux"}), true},
		{"both subsets", full, sc([]string{"foo"}, []string{"baz"}), true},
		{"claim missing", full, sc([]string{"foo"}, []string{"other"}), false},
		{"scope name is not a claim", full, sc(nil, []string{"foo"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.have.ContainsAll(tt.other))
		})
	}
}

func TestScopesAndClaimsUnion(t *testing.T) {
	empty := sc(nil, nil)
	a := sc([]string{"foo"}, []string{"bar"})
	b := sc([]string{"baz"}, []string{"qux"})

	require.True(t, empty.Union(empty).Equal(empty))
	require.True(t, a.Union(empty).Equal(a))
	require.True(t, empty.Union(a).Equal(a))
	require.True(t, a.Union(a).Equal(a))

	ab := a.Union(b)
	require.Equal(t, []string{"baz", "foo"}, ab.ScopeIDs())
	require.Equal(t, []string{"bar", "qux"}, ab.ClaimNames())

	// Operands are left untouched.
	require.Equal(t, []string{"foo"}, a.ScopeIDs())
	require.Equal(t, []string{"baz"}, b.ScopeIDs())
}
