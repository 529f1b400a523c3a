package httpx

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

// NullOrigin is the serialization of an opaque origin (RFC 6454 section 6.2).
const NullOrigin = "null"

// defaultPorts lists the schemes whose URLs must carry a host, with their
// default port.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

var originProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.BidiRule(),
)

// OriginFromURI computes the ASCII serialization of the origin of raw as
// defined by RFC 6454.
//
// Unparsable URIs, URIs without a scheme and http(s) URIs without a host
// yield NullOrigin. Other URIs without a host get a random value that will
// never match a real origin. Hosts are converted to punycode and the port is
// omitted when it is the scheme's default.
func OriginFromURI(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return NullOrigin
	}

	def, special := defaultPorts[u.Scheme]
	if u.Opaque != "" || u.Host == "" {
		if special {
			return NullOrigin
		}
		return uuid.NewString()
	}

	host, ok := originHost(u.Hostname())
	if !ok {
		return NullOrigin
	}

	port := u.Port()
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return NullOrigin
		}
		port = strconv.Itoa(n)
	}
	if port == "" || port == def {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return u.Scheme + "://" + host
	}
	return u.Scheme + "://" + net.JoinHostPort(host, port)
}

// originHost lower-cases the host and converts IDNs to punycode. IP
// literals are returned in canonical form.
func originHost(h string) (string, bool) {
	if ip := net.ParseIP(h); ip != nil {
		return ip.String(), true
	}
	host, err := originProfile.ToASCII(h)
	if err != nil || host == "" {
		return "", false
	}
	return strings.ToLower(host), true
}
