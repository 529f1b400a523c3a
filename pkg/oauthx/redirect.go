package oauthx

import (
	"net/url"
	"strings"
)

// IsValidRedirectURI checks a redirect_uri against RFC 6749 section 3.1.2:
// it must be an absolute, hierarchical URI without a fragment, and its
// scheme must be http or https.
func IsValidRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if !u.IsAbs() || u.Opaque != "" || u.Fragment != "" {
		return false
	}
	// Hierarchical URIs have an authority or an absolute path.
	if u.Host == "" && !strings.HasPrefix(u.Path, "/") {
		return false
	}

	return u.Scheme == "http" || u.Scheme == "https"
}

// RedirectURI builds the redirect sent back to a client's redirection
// endpoint. It must be created from a URI accepted by IsValidRedirectURI.
//
// A response carries either a code or an error, never both: calling SetCode
// after SetError (or the other way around) panics.
type RedirectURI struct {
	sb          strings.Builder
	separator   byte
	initialized bool
}

// NewRedirectURI starts a redirect from base, preserving its query string.
func NewRedirectURI(base string) *RedirectURI {
	r := &RedirectURI{separator: '?'}
	if strings.Contains(base, "?") {
		r.separator = '&'
	}
	r.sb.WriteString(base)
	return r
}

// SetState appends the state parameter unless state is empty.
func (r *RedirectURI) SetState(state string) *RedirectURI {
	r.appendParam("state", state)
	return r
}

// SetCode appends the authorization code.
func (r *RedirectURI) SetCode(code string) *RedirectURI {
	r.markInitialized()
	r.appendParam("code", code)
	return r
}

// SetError appends error and, when not empty, error_description.
func (r *RedirectURI) SetError(code, description string) *RedirectURI {
	r.markInitialized()
	r.appendParam("error", code)
	r.appendParam("error_description", description)
	return r
}

// SetSessionState appends the OpenID Connect session_state parameter.
func (r *RedirectURI) SetSessionState(state string) *RedirectURI {
	r.appendParam("session_state", state)
	return r
}

func (r *RedirectURI) String() string {
	return r.sb.String()
}

func (r *RedirectURI) markInitialized() {
	if r.initialized {
		panic("oauthx: redirect already carries a code or an error")
	}
	r.initialized = true
}

func (r *RedirectURI) appendParam(name, value string) {
	if value == "" {
		return
	}
	r.sb.WriteByte(r.separator)
	r.sb.WriteString(name)
	r.sb.WriteByte('=')
	r.sb.WriteString(url.QueryEscape(value))
	r.separator = '&'
}
