package httpx

import (
	"net/http"
	"slices"

	"github.com/aussiebroadwan/idp/pkg/slogx"
)

// Headers inspected by StrictReferer.
const (
	HeaderOrigin  = "Origin"
	HeaderReferer = "Referer"
)

// StrictRefererOptions configures StrictReferer.
type StrictRefererOptions struct {
	// BaseURL is the public URL of this server.
	BaseURL string

	// PortalURL is the public URL of the portal, trusted when AllowPortal
	// is set.
	PortalURL   string
	AllowPortal bool
}

// ExpectedOrigins returns the origins a request is allowed to come from.
func (o StrictRefererOptions) ExpectedOrigins() []string {
	origins := []string{OriginFromURI(o.BaseURL)}
	if o.AllowPortal && o.PortalURL != "" {
		if portal := OriginFromURI(o.PortalURL); !slices.Contains(origins, portal) {
			origins = append(origins, portal)
		}
	}
	return origins
}

// StrictReferer rejects cross-origin requests to state-changing endpoints.
//
// The Origin header must match one of the expected origins. Only when the
// Origin header is absent, the origin of the Referer is checked instead. Requests
// carrying neither are rejected with 400 and never reach next.
func StrictReferer(opts StrictRefererOptions) Middleware {
	expected := opts.ExpectedOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var (
				actual string
				from   string
			)
			// A present but empty Origin is checked as is.
			if origin, ok := r.Header[HeaderOrigin]; ok {
				actual, from = firstValue(origin), "ORIGIN"
			} else if referer := r.Header.Get(HeaderReferer); referer != "" {
				actual, from = OriginFromURI(referer), "REFERER"
			}

			if from != "" && slices.Contains(expected, actual) {
				next.ServeHTTP(w, r)
				return
			}

			args := []any{"endpoint", r.URL.Path, "expected_origins", expected}
			if from != "" {
				args = append(args, "actual_origin", actual, "from", from)
			}
			slogx.Audit(ctx, slogx.EventStrictReferer, args...)

			w.WriteHeader(http.StatusBadRequest)
		})
	}
}

func firstValue(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
