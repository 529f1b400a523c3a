package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// AlgorithmRS256 is the only signing algorithm we issue or accept.
const AlgorithmRS256 = "RS256"

var ErrNilKeyPair = errors.New("jwtx: nil key pair")

// Sign serializes claims as an RS256 JWS using the key pair's private key
// and sets the "kid" header so verifiers can pick the key from the JWKS.
func (kp *KeyPair) Sign(claims jwt.Claims) (string, error) {
	if kp == nil || kp.Private == nil {
		return "", ErrNilKeyPair
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = kp.KeyID
	return t.SignedString(kp.Private)
}
