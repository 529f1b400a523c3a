package oauthx

import (
	"maps"
	"slices"
	"strings"
)

// ScopesAndClaims is an immutable pair of scope ids and claim names.
//
// Construction migrates mapped scopes (profile, email, ...) into their
// claims, so ScopeIDs never returns a mapped scope. The zero value is the
// empty set.
type ScopesAndClaims struct {
	scopes map[string]struct{}
	claims map[string]struct{}
}

// NewScopesAndClaims builds a ScopesAndClaims from scopeIDs and claimNames.
func NewScopesAndClaims(scopeIDs, claimNames []string) ScopesAndClaims {
	sc := ScopesAndClaims{
		scopes: make(map[string]struct{}, len(scopeIDs)),
		claims: make(map[string]struct{}, len(claimNames)),
	}

	for _, c := range claimNames {
		sc.claims[c] = struct{}{}
	}
	for c := range MapScopesToClaims(slices.Values(scopeIDs)) {
		sc.claims[c] = struct{}{}
	}
	for _, s := range scopeIDs {
		if !IsMappedScope(s) {
			sc.scopes[s] = struct{}{}
		}
	}

	return sc
}

// ScopeIDs returns the remaining scope ids, sorted.
func (sc ScopesAndClaims) ScopeIDs() []string {
	return slices.Sorted(maps.Keys(sc.scopes))
}

// ClaimNames returns the claim names, sorted.
func (sc ScopesAndClaims) ClaimNames() []string {
	return slices.Sorted(maps.Keys(sc.claims))
}

// IsEmpty reports whether both sets are empty.
func (sc ScopesAndClaims) IsEmpty() bool {
	return len(sc.scopes) == 0 && len(sc.claims) == 0
}

// ContainsAll reports whether sc's scope set and claim set are each supersets
// of other's.
func (sc ScopesAndClaims) ContainsAll(other ScopesAndClaims) bool {
	return containsAll(sc.scopes, other.scopes) && containsAll(sc.claims, other.claims)
}

// Union returns the set union of both scope ids and claim names.
func (sc ScopesAndClaims) Union(other ScopesAndClaims) ScopesAndClaims {
	out := ScopesAndClaims{
		scopes: make(map[string]struct{}, len(sc.scopes)+len(other.scopes)),
		claims: make(map[string]struct{}, len(sc.claims)+len(other.claims)),
	}
	maps.Copy(out.scopes, sc.scopes)
	maps.Copy(out.scopes, other.scopes)
	maps.Copy(out.claims, sc.claims)
	maps.Copy(out.claims, other.claims)
	return out
}

// Equal reports whether both values hold the same scopes and claims.
func (sc ScopesAndClaims) Equal(other ScopesAndClaims) bool {
	return sc.ContainsAll(other) && other.ContainsAll(sc)
}

func (sc ScopesAndClaims) String() string {
	return "scopes=[" + strings.Join(sc.ScopeIDs(), " ") + "] claims=[" + strings.Join(sc.ClaimNames(), " ") + "]"
}

func containsAll(have, want map[string]struct{}) bool {
	for k := range want {
		if _, ok := have[k]; !ok {
			return false
		}
	}
	return true
}
