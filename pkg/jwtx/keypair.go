package jwtx

import (
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/mr-tron/base58"
)

// DefaultRSABits is the modulus size of generated key pairs.
const DefaultRSABits = 2048

// KeyPair is the RSA key pair used to sign ID tokens and to verify the
// id_token_hint values we issued. It is built once at startup and only read
// afterwards, so it is safe for concurrent use without locking.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey

	// KeyID is the "kid" published in the JWKS and set on every token we
	// sign. It is derived from the public key, so it stays stable across
	// restarts when the key pair is persisted.
	KeyID string
}

// NewKeyPair wraps priv and pub. A nil pub is derived from priv.
func NewKeyPair(priv *rsa.PrivateKey, pub *rsa.PublicKey) (*KeyPair, error) {
	if priv == nil {
		return nil, errors.New("jwtx: nil private key")
	}
	if pub == nil {
		pub = &priv.PublicKey
	}

	kid, err := KeyID(pub)
	if err != nil {
		return nil, err
	}

	return &KeyPair{Private: priv, Public: pub, KeyID: kid}, nil
}

// GenerateKeyPair creates a fresh in-memory key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := cryptox.GenerateRSAKey(DefaultRSABits)
	if err != nil {
		return nil, err
	}
	return NewKeyPair(priv, nil)
}

// KeyID returns base58(SHA-256(PKIX(pub))[:16]).
func KeyID(pub *rsa.PublicKey) (string, error) {
	der, err := cryptox.MarshalRSAPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("jwtx: key id: %w", err)
	}
	sum := sha256.Sum256(der)
	return base58.Encode(sum[:16]), nil
}

// LoadOrGenerateKeyPair returns the signing key pair described by the
// configured paths. It never fails: unreadable or corrupt files are logged
// and replaced by a freshly generated pair, and persistence problems only
// cost us the key surviving a restart.
//
//   - no private key path: generate in memory.
//   - private key path only: load it and derive the public key. A missing
//     file is generated and written.
//   - both paths: load both, deriving the public key if its file is
//     unusable. When the private key is missing too, a new pair is
//     generated and both files are written.
//
// Existing key files are never overwritten.
func LoadOrGenerateKeyPair(logger *slog.Logger, privateKeyPath, publicKeyPath string) *KeyPair {
	if logger == nil {
		logger = slog.Default()
	}

	if privateKeyPath == "" {
		if publicKeyPath != "" {
			logger.Warn("private key is not configured, cannot build a key pair from a public key alone",
				"public_key_path", publicKeyPath)
		}
		logger.Warn("generating an ephemeral key pair, issued id tokens will not survive a restart")
		return mustGenerate()
	}

	var (
		kp         *KeyPair
		storePriv  bool
		storePub   bool
		privExists = fileExists(privateKeyPath)
	)

	priv, err := loadPrivateKey(privateKeyPath)
	switch {
	case err == nil:
		kp = derivePublic(logger, priv, publicKeyPath)
		// The private key is authoritative: a missing public key file is
		// recreated from it.
		storePub = publicKeyPath != "" && !fileExists(publicKeyPath)
	case !privExists:
		logger.Warn("private key file does not exist", "path", privateKeyPath)
		// Writing a new private key next to an existing public key would
		// leave a mismatched pair on disk.
		storePriv = publicKeyPath == "" || !fileExists(publicKeyPath)
		storePub = storePriv && publicKeyPath != ""
	default:
		logger.Warn("cannot load the private key", "path", privateKeyPath, "error", err)
	}

	if kp == nil {
		logger.Warn("generating a key pair in memory")
		kp = mustGenerate()
	}

	if storePriv {
		if err := storePrivateKey(kp.Private, privateKeyPath); err != nil {
			logger.Warn("cannot store the private key", "path", privateKeyPath, "error", err)
			storePub = false
		} else {
			logger.Info("stored private key", "path", privateKeyPath)
		}
	}

	if storePub {
		if err := storePublicKey(kp.Public, publicKeyPath); err != nil {
			logger.Warn("cannot store the public key", "path", publicKeyPath, "error", err)
		} else {
			logger.Info("stored public key", "path", publicKeyPath)
		}
	}

	return kp
}

// derivePublic loads the public key when a path is configured, falling back
// to the public half of priv.
func derivePublic(logger *slog.Logger, priv *rsa.PrivateKey, publicKeyPath string) *KeyPair {
	var pub *rsa.PublicKey
	if publicKeyPath != "" {
		loaded, err := loadPublicKey(publicKeyPath)
		switch {
		case err != nil:
			logger.Warn("cannot load the public key, deriving it from the private key",
				"path", publicKeyPath, "error", err)
		case !loaded.Equal(&priv.PublicKey):
			logger.Warn("public key does not match the private key, deriving it from the private key",
				"path", publicKeyPath)
		default:
			pub = loaded
		}
	}

	kp, err := NewKeyPair(priv, pub)
	if err != nil {
		logger.Warn("cannot use the loaded private key", "error", err)
		return nil
	}
	return kp
}

func mustGenerate() *KeyPair {
	kp, err := GenerateKeyPair()
	if err != nil {
		// Only fails when the system RNG is broken.
		panic(fmt.Sprintf("jwtx: failed to generate key pair: %v", err))
	}
	return kp
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	return cryptox.ParseRSAPrivateKey(data)
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	return cryptox.ParseRSAPublicKey(data)
}

func readKeyFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("jwtx: %s is not a regular file", path)
	}
	return os.ReadFile(path)
}

func storePrivateKey(priv *rsa.PrivateKey, path string) error {
	der, err := cryptox.MarshalRSAPrivateKey(priv)
	if err != nil {
		return err
	}
	return writeKeyFile(path, der, 0o600)
}

func storePublicKey(pub *rsa.PublicKey, path string) error {
	der, err := cryptox.MarshalRSAPublicKey(pub)
	if err != nil {
		return err
	}
	return writeKeyFile(path, der, 0o644)
}

// writeKeyFile creates path exclusively; an existing file is left alone.
func writeKeyFile(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("jwtx: ensure key directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
