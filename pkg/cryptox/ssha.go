package cryptox

import (
	"crypto/sha1" // #nosec G505 - legacy hashes only, kept for verification of old credentials
	"crypto/subtle"
)

// SaltedSHA1Hasher computes SHA-1(password || salt). It only exists so that
// credentials created by older deployments still verify; new passwords
// should use SCryptHasher.
type SaltedSHA1Hasher struct{}

func (SaltedSHA1Hasher) CreateSalt() ([]byte, error) { return randomSalt() }

func (SaltedSHA1Hasher) HashPassword(password string, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, ErrEmptySalt
	}

	h := sha1.New() // #nosec G401
	h.Write([]byte(password))
	h.Write(salt)
	return h.Sum(nil), nil
}

func (s SaltedSHA1Hasher) CheckPassword(password string, hash, salt []byte) bool {
	computed, err := s.HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, hash) == 1
}
