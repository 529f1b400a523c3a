package cryptox

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Default scrypt cost parameters and derived key length.
const (
	DefaultSCryptN = 16384
	DefaultSCryptR = 8
	DefaultSCryptP = 1

	scryptKeyLength = 32
)

// SCryptParams holds the scrypt cost parameters. Zero fields use the
// defaults.
type SCryptParams struct {
	N int // CPU/memory cost, power of two greater than 1
	R int // block size
	P int // parallelism
}

// SCryptHasher hashes passwords with scrypt. It is the default hasher.
type SCryptHasher struct {
	params SCryptParams
}

// NewSCryptHasher validates params and returns a hasher using them.
func NewSCryptHasher(params SCryptParams) (*SCryptHasher, error) {
	if params.N == 0 {
		params.N = DefaultSCryptN
	}
	if params.R == 0 {
		params.R = DefaultSCryptR
	}
	if params.P == 0 {
		params.P = DefaultSCryptP
	}

	if params.N <= 1 || params.N&(params.N-1) != 0 || params.R <= 0 || params.P <= 0 {
		return nil, fmt.Errorf("%w: N=%d r=%d p=%d", ErrInvalidHashCost, params.N, params.R, params.P)
	}

	return &SCryptHasher{params: params}, nil
}

// Params returns the effective cost parameters.
func (h *SCryptHasher) Params() SCryptParams { return h.params }

func (h *SCryptHasher) CreateSalt() ([]byte, error) { return randomSalt() }

func (h *SCryptHasher) HashPassword(password string, salt []byte) ([]byte, error) {
	return h.derive(password, salt, scryptKeyLength)
}

// CheckPassword recomputes a key of the same length as the stored hash, so
// hashes produced with a different key length still verify.
func (h *SCryptHasher) CheckPassword(password string, hash, salt []byte) bool {
	if len(hash) == 0 {
		return false
	}

	computed, err := h.derive(password, salt, len(hash))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(computed, hash) == 1
}

func (h *SCryptHasher) derive(password string, salt []byte, keyLen int) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, h.params.N, h.params.R, h.params.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("cryptox: scrypt: %w", err)
	}
	return key, nil
}
