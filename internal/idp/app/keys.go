package app

import (
	"log/slog"

	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

// InitKeys loads the ID token key pair from the configured files, creating
// missing ones, or generates an ephemeral pair when no private key path is
// set. See jwtx.LoadOrGenerateKeyPair for the exact rules.
func InitKeys(cfg Config, logger *slog.Logger) *jwtx.KeyPair {
	kp := jwtx.LoadOrGenerateKeyPair(logger, cfg.PrivateKeyPath, cfg.PublicKeyPath)
	logger.Info("id token key pair ready", "kid", kp.KeyID, "persistent", cfg.PrivateKeyPath != "")
	return kp
}
