package http

import (
	"Shortly-Backend/internal/analytics"
	"Shortly-Backend/internal/auth"
	"Shortly-Backend/internal/config"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/internal/service"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Server wires the HTTP handlers and middleware into a routing tree.
type Server struct {
	authHandlers      *auth.AuthHandlers
	mappingHandlers   *MappingHandlers
	redirectHandler   *RedirectHandler
	analyticsHandlers *AnalyticsHandlers
	healthHandlers    *HealthHandlers
	authMiddleware    *auth.Middleware
	rateLimiter       *RateLimiter
	log               *zap.Logger
}

// ServerDeps collects everything the HTTP layer needs.
type ServerDeps struct {
	Storage      repository.Storage
	Allocator    *service.Allocator
	Resolver     *service.Resolver
	Deactivator  *service.Deactivator
	Aggregator   *analytics.Aggregator
	JWTService   *auth.JWTService
	PasswordSvc  *auth.PasswordService
	Shortener    *config.Shortener
	RateLimiter  *RateLimiter
	CheckStorage HealthChecker
	QueueStats   func() (int, int)
}

func NewServer(deps ServerDeps, log *zap.Logger) *Server {
	return &Server{
		authHandlers:      auth.NewAuthHandlers(deps.Storage, deps.JWTService, deps.PasswordSvc, log),
		mappingHandlers:   NewMappingHandlers(deps.Allocator, deps.Deactivator, deps.Storage, deps.Shortener, log),
		redirectHandler:   NewRedirectHandler(deps.Resolver, log),
		analyticsHandlers: NewAnalyticsHandlers(deps.Aggregator, log),
		healthHandlers:    NewHealthHandlers(deps.CheckStorage, deps.QueueStats, log),
		authMiddleware:    auth.NewMiddleware(deps.JWTService, log),
		rateLimiter:       deps.RateLimiter,
		log:               log,
	}
}

// SetupRoutes builds the handler tree. The bare-path redirect is
// registered last so every system route wins over it.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Probes and metrics, unauthenticated.
	mux.HandleFunc("GET /health", s.healthHandlers.Health)
	mux.HandleFunc("GET /ready", s.healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger documentation.
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Auth endpoints.
	mux.HandleFunc("POST /api/auth/register", s.public(s.authHandlers.Register))
	mux.HandleFunc("POST /api/auth/login", s.public(s.authHandlers.Login))

	// Short URL management. Creation and listing work anonymously;
	// a bearer token attaches ownership.
	mux.HandleFunc("POST /api/shorten", s.optionalAuth(s.mappingHandlers.CreateMapping))
	mux.HandleFunc("GET /api/urls", s.optionalAuth(s.mappingHandlers.ListMappings))
	mux.HandleFunc("DELETE /api/urls/{code}", s.optionalAuth(s.mappingHandlers.DeleteMapping))

	// Analytics.
	mux.HandleFunc("GET /api/analytics", s.optionalAuth(s.analyticsHandlers.Summary))
	mux.HandleFunc("GET /api/analytics/trends/{days}", s.optionalAuth(s.analyticsHandlers.Trends))
	mux.HandleFunc("GET /api/analytics/{code}", s.optionalAuth(s.analyticsHandlers.Detail))

	// Catch-all redirect, last.
	mux.HandleFunc("/", s.redirectHandler.Redirect)

	return mux
}

// public applies CORS and rate limiting without authentication.
func (s *Server) public(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(s.limited(handler))
}

// optionalAuth applies CORS, rate limiting and best-effort token parsing.
func (s *Server) optionalAuth(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(s.limited(s.authMiddleware.OptionalAuth(handler)))
}

func (s *Server) limited(handler http.HandlerFunc) http.HandlerFunc {
	if s.rateLimiter == nil {
		return handler
	}
	return s.rateLimiter.Middleware(handler)
}
