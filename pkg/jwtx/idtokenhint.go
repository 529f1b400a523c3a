package jwtx

import (
	"crypto/rsa"

	"github.com/golang-jwt/jwt/v5"
)

// ParseIDTokenHint validates an id_token_hint we issued earlier and returns
// its claims, or nil when the hint cannot be trusted.
//
// The signature must be RS256 under pub and the issuer must equal issuer.
// When expectedSubject is not empty the subject must equal it; a subject
// must be present either way. Expiry, not-before and audience are not
// checked.
func ParseIDTokenHint(hint string, pub *rsa.PublicKey, issuer, expectedSubject string) *jwt.RegisteredClaims {
	if hint == "" || pub == nil {
		return nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{AlgorithmRS256}),
		jwt.WithIssuer(issuer),
		jwt.WithoutClaimsValidation(),
	}
	if expectedSubject != "" {
		opts = append(opts, jwt.WithSubject(expectedSubject))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(hint, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	// WithoutClaimsValidation also skips the issuer and subject checks, so
	// they are enforced here.
	if claims.Issuer != issuer || claims.Subject == "" {
		return nil
	}
	if expectedSubject != "" && claims.Subject != expectedSubject {
		return nil
	}

	return claims
}

// SubjectFromHint returns the subject of a valid hint, or "".
func SubjectFromHint(hint string, pub *rsa.PublicKey, issuer string) string {
	claims := ParseIDTokenHint(hint, pub, issuer, "")
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// AudienceFromHint returns the first audience of a valid hint, or "". The
// hint must belong to expectedSubject when it is not empty.
func AudienceFromHint(hint string, pub *rsa.PublicKey, issuer, expectedSubject string) string {
	claims := ParseIDTokenHint(hint, pub, issuer, expectedSubject)
	if claims == nil || len(claims.Audience) == 0 {
		return ""
	}
	return claims.Audience[0]
}
