package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/pkg/httpx"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"

	_ "github.com/aussiebroadwan/idp/api/idp" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options are the public facts about this deployment the handlers need.
type Options struct {
	Issuer        string
	BaseURL       string
	PortalURL     string
	BuildVersion  string
	SecureCookies bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	opts      Options
	keys      *jwtx.KeyPair
	store     store.Store
	startTime time.Time
	logger    *slog.Logger

	Tokens        *service.TokenHandler
	Authenticator *service.TokenAuthenticator
	Clients       *service.ClientAuthenticator
}

func NewRouter(
	opts Options,
	keys *jwtx.KeyPair,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		opts:      opts,
		keys:      keys,
		store:     st,
		startTime: time.Now(),
		logger:    logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerKeys()
	r.registerSession()
	r.registerTokens()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			AussieBroadWAN Identity Provider API
//	@version		0.1.0
//	@description	Token core of the identity provider: opaque tokens, browser sessions, revocation and RS256 ID tokens.
//	@description
//	@description				ID tokens are signed using RS256 (RSA-SHA256) and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/idp
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
//
//	@securityDefinitions.basic	BasicAuth
//	@description				Client id and secret.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerKeys() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSession() {
	h := &LogoutHandler{
		Tokens:        r.Tokens,
		Keys:          r.keys,
		Issuer:        r.opts.Issuer,
		BaseURL:       r.opts.BaseURL,
		PortalURL:     r.opts.PortalURL,
		SecureCookies: r.opts.SecureCookies,
	}
	session := SessionMiddleware(r.Tokens, r.opts.SecureCookies)

	r.Mux.Handle("GET /a/logout",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.SessionLimit),
			session,
		),
	)

	// POST /logout - only from our own pages or the portal
	r.Mux.Handle("POST /a/logout",
		httpx.Chain(http.HandlerFunc(h.HandlePost),
			httpx.RateLimitByIP(httpx.SessionLimit),
			httpx.StrictReferer(httpx.StrictRefererOptions{
				BaseURL:     r.opts.BaseURL,
				PortalURL:   r.opts.PortalURL,
				AllowPortal: true,
			}),
			session,
		),
	)
}

func (r *Router) registerTokens() {
	clientAuth := ClientAuthMiddleware(r.Clients)

	// POST /revoke - limited by IP before the client secret is checked
	r.Mux.Handle("POST /a/revoke",
		httpx.Chain(&RevokeHandler{Tokens: r.Tokens},
			httpx.RateLimitByIP(httpx.TokenLimit),
			clientAuth,
		),
	)

	info := &TokenInfoHandler{Tokens: r.Tokens, Store: r.store}

	r.Mux.Handle("GET /a/tokeninfo",
		httpx.Chain(http.HandlerFunc(info.HandleGet),
			httpx.AuthnMiddleware(r.Authenticator),
			httpx.RequireAnyScope("openid"),
			httpx.RateLimitByAccount(httpx.APILimit),
		),
	)

	r.Mux.Handle("POST /a/tokeninfo",
		httpx.Chain(http.HandlerFunc(info.HandlePost),
			httpx.RateLimitByIP(httpx.TokenLimit),
			clientAuth,
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.opts.BuildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.opts.BuildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
