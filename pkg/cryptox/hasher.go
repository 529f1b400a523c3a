package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Password hasher names accepted by NewPasswordHasher.
const (
	HasherSCrypt     = "scrypt"
	HasherSaltedSHA1 = "ssha"
	HasherNull       = "null"
)

// SaltLength is the number of random bytes used to salt password hashes.
const SaltLength = 32

var (
	ErrEmptySalt       = errors.New("cryptox: salt must not be empty")
	ErrUnknownHasher   = errors.New("cryptox: unknown password hasher")
	ErrInvalidHashCost = errors.New("cryptox: invalid hash cost parameters")
)

// PasswordHasher turns a password and a salt into a verifiable hash. The
// hash and the salt are stored side by side; neither is secret on its own.
//
// All implementations compare hashes in constant time.
type PasswordHasher interface {
	// CreateSalt returns fresh salt bytes (possibly nil for hashers that
	// do not use one).
	CreateSalt() ([]byte, error)

	// HashPassword derives the hash of password under salt.
	HashPassword(password string, salt []byte) ([]byte, error)

	// CheckPassword reports whether password hashes to hash under salt.
	CheckPassword(password string, hash, salt []byte) bool
}

// NewPasswordHasher returns the hasher registered under name. The scrypt
// parameters are only used by the scrypt hasher; zero values fall back to
// the defaults.
func NewPasswordHasher(name string, params SCryptParams) (PasswordHasher, error) {
	switch name {
	case HasherSCrypt, "":
		return NewSCryptHasher(params)
	case HasherSaltedSHA1:
		return SaltedSHA1Hasher{}, nil
	case HasherNull:
		return NullHasher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHasher, name)
	}
}

func randomSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}
	return salt, nil
}
