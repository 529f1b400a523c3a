package app

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, cfg.BaseURL, cfg.Issuer)
	require.Equal(t, cryptox.HasherSCrypt, cfg.PasswordHasher)
	require.Equal(t, 6, cfg.PasswordMinLength)
	require.Equal(t, time.Minute, cfg.AuthorizationCodeTTL)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, time.Hour, cfg.IDTokenTTL)
	require.Equal(t, 2*time.Hour, cfg.SidTokenTTL)
	require.Greater(t, cfg.RefreshTokenTTL, 99*365*24*time.Hour)
	require.NoError(t, cfg.Validate())
	require.False(t, cfg.SecureCookies())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IDP_BASE_URL", "https://idp.example")
	t.Setenv("IDP_ACCESS_TOKEN_TTL", "90")
	t.Setenv("IDP_SID_TOKEN_TTL", "30m")
	t.Setenv("IDP_PASSWORD_MIN_LENGTH", "not-a-number")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "https://idp.example", cfg.Issuer)
	require.Equal(t, 90*time.Second, cfg.AccessTokenTTL)
	require.Equal(t, 30*time.Minute, cfg.SidTokenTTL)
	require.Equal(t, 6, cfg.PasswordMinLength)
	require.True(t, cfg.SecureCookies())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults"},
		{
			name:    "null hasher outside test",
			mutate:  func(c *Config) { c.PasswordHasher = cryptox.HasherNull },
			wantErr: "null password hasher",
		},
		{
			name: "null hasher in test",
			mutate: func(c *Config) {
				c.PasswordHasher = cryptox.HasherNull
				c.Env = "test"
			},
		},
		{
			name:    "unknown hasher",
			mutate:  func(c *Config) { c.PasswordHasher = "md5" },
			wantErr: "unknown password hasher",
		},
		{
			name:    "bad scrypt cost",
			mutate:  func(c *Config) { c.SCrypt.N = 1000 },
			wantErr: "invalid hash cost",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.BaseURL = "/idp" },
			wantErr: "IDP_BASE_URL",
		},
		{
			name:    "bad portal url",
			mutate:  func(c *Config) { c.PortalURL = "ftp://portal.example" },
			wantErr: "IDP_PORTAL_URL",
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.AccessTokenTTL = 0 },
			wantErr: "IDP_ACCESS_TOKEN_TTL",
		},
		{
			name:    "client without secret",
			mutate:  func(c *Config) { c.ClientID = "portal" },
			wantErr: "IDP_CLIENT_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
