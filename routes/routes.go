package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/ip-registry/app"
	"github.com/upb/ip-registry/gateway"
	"github.com/upb/ip-registry/handlers"
	"github.com/upb/ip-registry/middleware"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// SetupAuthRoutes configures the auth service routes
func SetupAuthRoutes(deps *app.Dependencies) http.Handler {
	r := newRouter(deps.Logger)
	mountHealth(r, deps)

	auth := handlers.NewAuthHandler(deps.AuthService, deps.Logger)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", auth.HandleLogin)
		r.Post("/refresh", auth.HandleRefresh)
		r.Post("/logout", auth.HandleLogout)
		// Called by the gateway for every protected request
		r.Get("/validate", auth.HandleValidate)
	})

	r.NotFound(envelopeNotFound)
	return r
}

// SetupAppRoutes configures the app service routes
func SetupAppRoutes(deps *app.Dependencies) http.Handler {
	r := newRouter(deps.Logger)
	mountHealth(r, deps)

	identity := middleware.NewIdentityMiddleware(deps.Config.Services.ContextSecret, deps.Logger)
	ips := handlers.NewIPAddressHandler(deps.IPAddresses, deps.Logger)
	logs := handlers.NewAuditLogHandler(deps.AuditLogs, deps.Logger)
	internal := handlers.NewInternalHandler(deps.AuditLogs, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/ip-addresses", func(r chi.Router) {
			r.Use(identity.RequireUserContext)
			r.Get("/", ips.HandleList)
			r.Post("/", ips.HandleCreate)
			r.Put("/{id}", ips.HandleUpdate)
			r.Delete("/{id}", ips.HandleDelete)
		})

		r.Route("/audit-logs", func(r chi.Router) {
			r.Use(identity.RequireUserContext)
			r.Get("/session", logs.HandleSessionLogs)
			r.Get("/user", logs.HandleUserLogs)
			r.Get("/ip-address/{ip}/session", logs.HandleIPSessionLogs)
			r.Get("/ip-address/{ip}", logs.HandleIPLogs)
			r.With(identity.RequireSuperAdmin).Get("/all", logs.HandleAllLogs)
		})

		// Service-to-service; the gateway never routes here
		r.Post("/internal/audit-log", internal.HandleAuditLog)
	})

	r.NotFound(envelopeNotFound)
	return r
}

// SetupGatewayRoutes configures the public gateway routes
func SetupGatewayRoutes(deps *app.Dependencies) http.Handler {
	r := newRouter(deps.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			gateway.RefreshTokenHeader, gateway.SessionIDHeader,
		},
		ExposedHeaders:   []string{gateway.NewAccessTokenHeader, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mountHealth(r, deps)

	authenticated := deps.Mediator.Authenticate

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", deps.AuthProxy.ServeHTTP)
		r.Post("/auth/refresh", deps.AuthProxy.ServeHTTP)
		r.With(authenticated).Post("/auth/logout", deps.AuthProxy.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Handle("/ip-addresses", deps.AppProxy)
			r.Handle("/ip-addresses/*", deps.AppProxy)
			r.Handle("/audit-logs/*", deps.AppProxy)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "The requested resource was not found")
	})
	return r
}

// newRouter creates a router with the middleware every process shares
func newRouter(logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	return r
}

// mountHealth registers /healthz and /readyz over the process's own stores
func mountHealth(r chi.Router, deps *app.Dependencies) {
	checks := make(map[string]handlers.HealthChecker)
	if deps.DB != nil {
		checks["database"] = deps.DB
	}
	if deps.RedisCounter != nil {
		checks["redis"] = deps.RedisCounter
	}

	health := handlers.NewHealthHandler(checks, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
}

func envelopeNotFound(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteFailure(w, http.StatusNotFound, "The requested resource was not found", nil)
}
