package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/httpx"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// Realm is the protection space announced in WWW-Authenticate challenges.
const Realm = "groupgate"

// ReadScope is the scope token the group directory endpoints require.
const ReadScope = "read"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store         store.Store
	authenticator identity.Authenticator

	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
	VerifyService    *service.VerifyService
	ClientService    *service.ClientService
	ApprovalService  *service.ApprovalService
	VootService      *service.VootService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	authenticator identity.Authenticator,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		authenticator: authenticator,
		logger:        logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth()
	r.registerApprovals()
	r.registerClients()
	r.registerGroups()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		Authenticator:    r.authenticator,
	}

	// GET /oauth/authorize - lenient rate limit (renders the consent page)
	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /oauth/authorize - moderate rate limit (consent submissions)
	r.Mux.Handle("POST /oauth/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /oauth/token - strict rate limit (client credential guessing)
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerApprovals() {
	h := &ApprovalsHandler{
		ApprovalService: r.ApprovalService,
		Authenticator:   r.authenticator,
	}

	r.Mux.Handle("GET /oauth/revoke",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /oauth/revoke",
		httpx.Chain(http.HandlerFunc(h.HandlePost),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	// Every client management route needs a bearer token carrying the
	// admin scope; only allowlisted owners can obtain one.
	admin := BearerMiddleware(r.VerifyService, Realm, service.AdminScope)

	r.Mux.Handle("GET /oauth/client",
		httpx.Chain(http.HandlerFunc(h.HandleList), admin, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("POST /oauth/client",
		httpx.Chain(http.HandlerFunc(h.HandleCreate), admin, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("GET /oauth/client/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), admin, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("PUT /oauth/client/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate), admin, httpx.RateLimitByIP(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /oauth/client/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete), admin, httpx.RateLimitByIP(httpx.ModerateLimit)))
}

func (r *Router) registerGroups() {
	h := &GroupsHandler{VootService: r.VootService}

	read := BearerMiddleware(r.VerifyService, Realm, ReadScope)

	r.Mux.Handle("GET /groups/@me",
		httpx.Chain(http.HandlerFunc(h.HandleGroups),
			read, CORSMiddleware, httpx.RateLimitByIP(httpx.PublicLimit)))
	r.Mux.Handle("GET /people/@me/{groupID}",
		httpx.Chain(http.HandlerFunc(h.HandleGroupMembers),
			read, CORSMiddleware, httpx.RateLimitByIP(httpx.PublicLimit)))

	// Preflight for browser-based clients.
	r.Mux.Handle("OPTIONS /groups/@me", CORSMiddleware(http.NotFoundHandler()))
	r.Mux.Handle("OPTIONS /people/@me/{groupID}", CORSMiddleware(http.NotFoundHandler()))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(http.HandlerFunc(r.HandleLivez), httpx.RateLimitByIP(httpx.PublicLimit)))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(http.HandlerFunc(r.HandleReadyz), httpx.RateLimitByIP(httpx.PublicLimit)))
}
