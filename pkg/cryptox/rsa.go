package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// MinRSABits is the smallest RSA modulus we are willing to generate.
const MinRSABits = 2048

var ErrNotRSAKey = errors.New("cryptox: not an RSA key")

// GenerateRSAKey generates a new RSA private key with the specified bit size.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}
	return key, nil
}

// MarshalRSAPrivateKey encodes key as PKCS#8 DER, the on-disk format of the
// private key file.
func MarshalRSAPrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}
	return der, nil
}

// MarshalRSAPublicKey encodes pub as PKIX (X.509 SubjectPublicKeyInfo) DER.
func MarshalRSAPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKIX key: %w", err)
	}
	return der, nil
}

// ParseRSAPrivateKey reads a private key in PKCS#8 DER. PEM input ("PRIVATE
// KEY" or "RSA PRIVATE KEY") is accepted as well so that keys produced by
// openssl can be dropped in as is.
func ParseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	der := data
	pkcs1 := false
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
		pkcs1 = block.Type == "RSA PRIVATE KEY"
	}

	if pkcs1 {
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS1: %w", err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return key, nil
}

// ParseRSAPublicKey reads a PKIX DER (or "PUBLIC KEY" PEM) public key.
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKIX: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return pub, nil
}
