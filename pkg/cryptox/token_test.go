package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/idp/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"128-bit token", cryptox.TokenSize128, 22},
		{"256-bit token", cryptox.TokenSize256, 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := cryptox.GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.wantLen)

			token2, err := cryptox.GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}
}

func TestGenerateTokenInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := cryptox.GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprint(t *testing.T) {
	a := cryptox.Fingerprint("Mozilla/5.0")
	require.Len(t, a, 32)
	require.Equal(t, a, cryptox.Fingerprint("Mozilla/5.0"))
	require.NotEqual(t, a, cryptox.Fingerprint("curl/8.0"))
}
