package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultIDTokenTTL is the default lifetime of issued ID tokens.
const DefaultIDTokenTTL = time.Hour

// IDTokenClaims are the OpenID Connect ID token claims we issue.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	// Nonce echoes the value sent on the authorization request.
	Nonce string `json:"nonce,omitempty"`

	// AuthTime is when the end-user last authenticated with a password.
	AuthTime *jwt.NumericDate `json:"auth_time,omitempty"`

	// SessionID lets relying parties correlate front-channel logouts.
	SessionID string `json:"sid,omitempty"`
}

// NewIDTokenClaims builds the claims of an ID token for subject, issued to
// audience at now.
func NewIDTokenClaims(issuer, subject, audience, nonce string, authTime, now time.Time, ttl time.Duration) IDTokenClaims {
	c := IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Nonce: nonce,
	}
	if !authTime.IsZero() {
		c.AuthTime = jwt.NewNumericDate(authTime)
	}
	return c
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
