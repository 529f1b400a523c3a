package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

type Config struct {
	Issuer    string // Optional: iss of ID tokens (default: BaseURL)
	BaseURL   string // Optional: public URL of this server (default: http://localhost:<port>)
	PortalURL string // Optional: public URL of the portal, trusted by logout

	PrivateKeyPath string // Optional: PKCS#8 private key file; empty means an ephemeral key pair
	PublicKeyPath  string // Optional: PKIX public key file
	DatabaseFile   string // Optional: path to SQLite database file (default: ./idp.db)

	PasswordHasher    string // Optional: scrypt, ssha or null (default: scrypt)
	PasswordMinLength int    // Optional: minimum password length in characters (default: 6)
	SCrypt            cryptox.SCryptParams

	AuthorizationCodeTTL time.Duration // default: 1m
	AccessTokenTTL       time.Duration // default: 1h
	RefreshTokenTTL      time.Duration // default: 100 years
	IDTokenTTL           time.Duration // default: 1h
	SidTokenTTL          time.Duration // default: 2h

	// Optional client registered at startup, mainly for local setups.
	ClientID     string
	ClientSecret string

	Env                  string        // Environment (dev, test, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	port := getEnvIntOrDefault("PORT", 8080)

	cfg := Config{
		BaseURL:        getEnvOrDefault("IDP_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		PortalURL:      os.Getenv("IDP_PORTAL_URL"),
		PrivateKeyPath: os.Getenv("IDP_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("IDP_PUBLIC_KEY_PATH"),
		DatabaseFile:   getEnvOrDefault("IDP_DATABASE_FILE", "idp.db"),

		PasswordHasher:    getEnvOrDefault("IDP_PASSWORD_HASHER", cryptox.HasherSCrypt),
		PasswordMinLength: getEnvIntOrDefault("IDP_PASSWORD_MIN_LENGTH", service.DefaultPasswordMinLength),
		SCrypt: cryptox.SCryptParams{
			N: getEnvIntOrDefault("IDP_SCRYPT_N", cryptox.DefaultSCryptN),
			R: getEnvIntOrDefault("IDP_SCRYPT_R", cryptox.DefaultSCryptR),
			P: getEnvIntOrDefault("IDP_SCRYPT_P", cryptox.DefaultSCryptP),
		},

		AuthorizationCodeTTL: getEnvDurationOrDefault("IDP_AUTHORIZATION_CODE_TTL", service.DefaultAuthorizationCodeTTL),
		AccessTokenTTL:       getEnvDurationOrDefault("IDP_ACCESS_TOKEN_TTL", service.DefaultAccessTokenTTL),
		RefreshTokenTTL:      getEnvDurationOrDefault("IDP_REFRESH_TOKEN_TTL", service.DefaultRefreshTokenTTL),
		IDTokenTTL:           getEnvDurationOrDefault("IDP_ID_TOKEN_TTL", jwtx.DefaultIDTokenTTL),
		SidTokenTTL:          getEnvDurationOrDefault("IDP_SID_TOKEN_TTL", service.DefaultSidTokenTTL),

		ClientID:     os.Getenv("IDP_CLIENT_ID"),
		ClientSecret: os.Getenv("IDP_CLIENT_SECRET"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 port,
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	cfg.Issuer = getEnvOrDefault("IDP_ISSUER", cfg.BaseURL)

	return cfg
}

// Validate reports the first setting the service cannot start with.
func (c Config) Validate() error {
	if c.PasswordHasher == cryptox.HasherNull && c.Env != "test" {
		return errors.New("config: the null password hasher is only allowed with ENV=test")
	}
	if _, err := cryptox.NewPasswordHasher(c.PasswordHasher, c.SCrypt); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for name, u := range map[string]string{"IDP_BASE_URL": c.BaseURL, "IDP_PORTAL_URL": c.PortalURL} {
		if u == "" && name == "IDP_PORTAL_URL" {
			continue
		}
		if !isHTTPURL(u) {
			return fmt.Errorf("config: %s must be an absolute http(s) URL, got %q", name, u)
		}
	}
	if c.Issuer == "" {
		return errors.New("config: IDP_ISSUER must not be empty")
	}

	for name, d := range map[string]time.Duration{
		"IDP_AUTHORIZATION_CODE_TTL": c.AuthorizationCodeTTL,
		"IDP_ACCESS_TOKEN_TTL":       c.AccessTokenTTL,
		"IDP_REFRESH_TOKEN_TTL":      c.RefreshTokenTTL,
		"IDP_ID_TOKEN_TTL":           c.IDTokenTTL,
		"IDP_SID_TOKEN_TTL":          c.SidTokenTTL,
		"SHUTDOWN_GRACE_PERIOD":      c.ShutdownGracePeriod,
		"HOUSEKEEPING_INTERVAL":      c.HousekeepingInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}

	if c.PasswordMinLength < 1 {
		return fmt.Errorf("config: IDP_PASSWORD_MIN_LENGTH must be positive, got %d", c.PasswordMinLength)
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return errors.New("config: IDP_CLIENT_ID and IDP_CLIENT_SECRET must be set together")
	}

	return nil
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (c Config) SecureCookies() bool {
	u, err := url.Parse(c.BaseURL)
	return err == nil && u.Scheme == "https"
}

func (c Config) tokenConfig() service.TokenConfig {
	return service.TokenConfig{
		AuthorizationCodeTTL: c.AuthorizationCodeTTL,
		AccessTokenTTL:       c.AccessTokenTTL,
		RefreshTokenTTL:      c.RefreshTokenTTL,
		SidTokenTTL:          c.SidTokenTTL,
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
