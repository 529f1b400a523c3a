package jwtx

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// JWK represents an RSA public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`           // key type, always "RSA" here
	Use string `json:"use,omitempty"` // "sig"
	Alg string `json:"alg,omitempty"` // "RS256"
	Kid string `json:"kid,omitempty"`

	N string `json:"n"` // modulus (base64url)
	E string `json:"e"` // exponent (base64url)
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewRSAJWK builds a signing JWK for an RSA public key.
func NewRSAJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: AlgorithmRS256,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// PublicKey decodes the JWK back into an RSA public key.
func (j JWK) PublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

// CheckPublished verifies that every key in the published set decodes to
// the public half of the signing key under its own kid.
func (kp *KeyPair) CheckPublished() error {
	if kp == nil || kp.Private == nil {
		return errors.New("jwtx: no key pair loaded")
	}
	for _, k := range kp.JWKS().Keys {
		pub, err := k.PublicKey()
		if err != nil {
			return fmt.Errorf("jwtx: published key %s: %w", k.Kid, err)
		}
		if !pub.Equal(&kp.Private.PublicKey) {
			return fmt.Errorf("jwtx: published key %s does not match the signing key", k.Kid)
		}
		if kid, err := KeyID(pub); err != nil || kid != k.Kid {
			return fmt.Errorf("jwtx: published key %s has kid %s", k.Kid, kid)
		}
	}
	return nil
}

// JWKS returns the key set published on the discovery endpoint.
func (kp *KeyPair) JWKS() JWKS {
	return JWKS{Keys: []JWK{NewRSAJWK(kp.KeyID, kp.Public)}}
}
