package oauthx_test

import (
	"testing"

	"github.com/aussiebroadwan/idp/pkg/oauthx"
	"github.com/stretchr/testify/require"
)

func TestIsValidRedirectURI(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"https://host/path?x=1", true},
		{"http://localhost:8080/callback", true},
		{"https://host", true},
		{"relative/path", false},
		{"/absolute/path", false},
		{"ftp://host/path", false},
		{"HTTPS://host/path", true},
		{"https://host/path#fragment", false},
		{"mailto:someone@example.com", false},
		{"https:opaque", false},
		{"custom-scheme://app/callback", false},
		{"", false},
		{"https://host/%zz", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			require.Equal(t, tt.want, oauthx.IsValidRedirectURI(tt.uri))
		})
	}
}

func TestRedirectURIBuilder(t *testing.T) {
	tests := []struct {
		name  string
		build func() *oauthx.RedirectURI
		want  string
	}{
		{
			name: "code and state",
			build: func() *oauthx.RedirectURI {
				return oauthx.NewRedirectURI("https://rp.example/cb").SetCode("abc").SetState("xyz")
			},
			want: "https://rp.example/cb?code=abc&state=xyz",
		},
		{
			name: "existing query",
			build: func() *oauthx.RedirectURI {
				return oauthx.NewRedirectURI("https://rp.example/cb?x=1").SetCode("abc")
			},
			want: "https://rp.example/cb?x=1&code=abc",
		},
		{
			name: "error with description is form encoded",
			build: func() *oauthx.RedirectURI {
				return oauthx.NewRedirectURI("https://rp.example/cb").
					SetError("access_denied", "user said no & left").
					SetState("a b")
			},
			want: "https://rp.example/cb?error=access_denied&error_description=user+said+no+%26+left&state=a+b",
		},
		{
			name: "empty optional values are skipped",
			build: func() *oauthx.RedirectURI {
				return oauthx.NewRedirectURI("https://rp.example/cb").SetState("").SetError("invalid_scope", "")
			},
			want: "https://rp.example/cb?error=invalid_scope",
		},
		{
			name: "session state",
			build: func() *oauthx.RedirectURI {
				return oauthx.NewRedirectURI("https://rp.example/cb").SetCode("c").SetSessionState("s.salt")
			},
			want: "https://rp.example/cb?code=c&session_state=s.salt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.build().String())
		})
	}
}

func TestRedirectURICodeAndErrorAreExclusive(t *testing.T) {
	require.Panics(t, func() {
		oauthx.NewRedirectURI("https://rp.example/cb").SetCode("abc").SetError("server_error", "")
	})
	require.Panics(t, func() {
		oauthx.NewRedirectURI("https://rp.example/cb").SetError("server_error", "").SetCode("abc")
	})
	require.Panics(t, func() {
		oauthx.NewRedirectURI("https://rp.example/cb").SetCode("a").SetCode("b")
	})
}
