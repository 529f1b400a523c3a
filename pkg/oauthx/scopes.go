// Package oauthx holds the OAuth 2.0 / OpenID Connect value types shared by
// the token core and the HTTP layer: scope to claim mapping, authorized
// scope sets and redirect URIs.
package oauthx

import (
	"iter"
	"maps"
	"slices"
)

// OpenID Connect 1.0 scopes.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
	ScopeAddress       = "address"
	ScopePhone         = "phone"
	ScopeOfflineAccess = "offline_access"
)

// scopesToClaims is the fixed mapping from standard scopes to the claims
// they expose. openid maps to nothing: "sub" is always released.
var scopesToClaims = map[string][]string{
	ScopeOpenID: {},
	ScopeProfile: {
		"name", "family_name", "given_name", "middle_name", "nickname", "preferred_username",
		"profile", "picture", "website",
		"gender", "birthdate",
		"zoneinfo", "locale",
		"updated_at",
	},
	ScopeEmail:   {"email", "email_verified"},
	ScopeAddress: {"address"},
	ScopePhone:   {"phone_number", "phone_number_verified"},
}

// IsMappedScope reports whether scopeID is one of the scopes translated into
// claims.
func IsMappedScope(scopeID string) bool {
	_, ok := scopesToClaims[scopeID]
	return ok
}

// SupportedClaims returns every claim reachable through a mapped scope,
// sorted.
func SupportedClaims() []string {
	set := make(map[string]struct{})
	for _, claims := range scopesToClaims {
		for _, c := range claims {
			set[c] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// MapScopesToClaims lazily yields the claims of every mapped scope in
// scopeIDs, in input order. Unknown scopes are skipped and duplicates are
// not removed.
func MapScopesToClaims(scopeIDs iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for id := range scopeIDs {
			for _, c := range scopesToClaims[id] {
				if !yield(c) {
					return
				}
			}
		}
	}
}
