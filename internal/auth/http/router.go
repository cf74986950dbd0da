package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
	"github.com/aussiebroadwan/chambers/pkg/slogx"

	_ "github.com/aussiebroadwan/chambers/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	limiter      httpx.Limiter
	limits       httpx.RateLimitProfiles
	metrics      *Metrics

	Guard            *service.Guard
	TokenService     *service.TokenService
	UserService      *service.UserService
	InviteService    *service.InviteService
	BootstrapService *service.BootstrapService
}

// RouterOptions carries the cross-cutting settings for NewRouter.
type RouterOptions struct {
	BuildVersion string
	Limiter      httpx.Limiter // defaults to an in-process limiter
	Limits       httpx.RateLimitProfiles
	CORS         httpx.CORSConfig
}

func NewRouter(st store.Store, logger *slog.Logger, opts RouterOptions) *Router {
	if opts.Limiter == nil {
		opts.Limiter = httpx.NewLocalLimiter()
	}
	if opts.Limits == (httpx.RateLimitProfiles{}) {
		opts.Limits = httpx.DefaultRateLimitProfiles()
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: opts.BuildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		limiter:      opts.Limiter,
		limits:       opts.Limits,
		metrics:      NewMetrics(),
	}

	// Outermost first: request ID and logging see every response.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.metrics.Middleware,
		httpx.CORS(opts.CORS),
	}

	return r
}

// Metrics exposes the router's collectors.
func (r *Router) Metrics() *Metrics { return r.metrics }

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInvites()
	r.registerHome()
	r.registerBootstrap()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Chambers Authentication Service API
//	@version		0.1.0
//	@description	Invite-only account registration, password login and role-gated access for admins, clients and fee earners.
//	@description
//	@description				Session tokens are HMAC-signed JWTs. They cannot be refreshed or revoked and expire after a short, configured lifetime.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/chambers
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
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		UserService:   r.UserService,
		InviteService: r.InviteService,
		Metrics:       r.metrics,
	}

	// POST /login - strict rate limit by IP (brute force prevention)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.limiter, "login", r.limits.Strict),
		),
	)

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.limiter, "register", r.limits.Strict),
		),
	)

	// GET /me - any authenticated identity
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.authenticated(),
			httpx.RateLimitByUser(r.limiter, "me", r.limits.Lenient),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{InviteService: r.InviteService, Metrics: r.metrics}

	// Admin endpoints - store-backed ADMIN check, moderate limit by user
	r.Mux.Handle("POST /api/invites/send-invite",
		httpx.Chain(http.HandlerFunc(h.HandleSend),
			r.authenticated(domain.RoleAdmin),
			httpx.RateLimitByUser(r.limiter, "invite-send", r.limits.Moderate),
		),
	)
	r.Mux.Handle("GET /api/invites",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authenticated(domain.RoleAdmin),
			httpx.RateLimitByUser(r.limiter, "invite-list", r.limits.Lenient),
		),
	)
	r.Mux.Handle("POST /api/invites/{id}/reject",
		httpx.Chain(http.HandlerFunc(h.HandleReject),
			r.authenticated(domain.RoleAdmin),
			httpx.RateLimitByUser(r.limiter, "invite-reject", r.limits.Moderate),
		),
	)

	// GET /invite/{token} - public, strict limit by IP (token guessing)
	r.Mux.Handle("GET /api/invites/invite/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(r.limiter, "invite-verify", r.limits.Strict),
		),
	)
}

func (r *Router) registerHome() {
	h := &HomeHandler{}

	r.Mux.Handle("GET /api/client-home",
		httpx.Chain(http.HandlerFunc(h.ServeHTTP),
			r.authenticated(domain.RoleClient),
			httpx.RateLimitByUser(r.limiter, "client-home", r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /api/fee-earner-home",
		httpx.Chain(http.HandlerFunc(h.ServeHTTP),
			r.authenticated(domain.RoleFeeEarner),
			httpx.RateLimitByUser(r.limiter, "fee-earner-home", r.limits.Lenient),
		),
	)
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	h := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h,
			httpx.RateLimitByIP(r.limiter, "bootstrap", r.limits.Strict),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - public limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limiter, "livez", r.limits.Public),
		),
	)
	r.Mux.Handle("GET /health",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limiter, "health", r.limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.TokenService),
			httpx.RateLimitByIP(r.limiter, "readyz", r.limits.Public),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
