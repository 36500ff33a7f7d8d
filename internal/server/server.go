package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/hongminglow/user-manager/internal/auth"
	"github.com/hongminglow/user-manager/internal/config"
	"github.com/hongminglow/user-manager/internal/http/handlers"
	"github.com/hongminglow/user-manager/internal/http/respond"
	"github.com/hongminglow/user-manager/internal/middleware"
	"github.com/hongminglow/user-manager/internal/observability"
	"github.com/hongminglow/user-manager/internal/storage"
	"github.com/hongminglow/user-manager/internal/users"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// Deps are the collaborators the router needs.
type Deps struct {
	Store   storage.UserStore
	Tokens  *auth.TokenManager
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// NewRouter builds the full handler tree. Exposed separately for tests.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	store := observability.InstrumentStore(deps.Store, deps.Metrics)
	userService := users.NewService(store)

	health := handlers.NewHealthHandler(time.Now())
	authHandler := handlers.NewAuthHandler(deps.Tokens, deps.Logger)
	usersHandler := handlers.NewUsersHandler(userService, deps.Logger)

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.IsProduction(),
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(deps.Metrics.Middleware)
	r.Use(secureMiddleware.Handler)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	health.Register(r)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// Shared by /auth and /api/auth.
	loginLimit := httprate.LimitByIP(cfg.MockLoginRatePerMinute, time.Minute)
	api := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(loginLimit)
			authHandler.Register(r)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Tokens, deps.Logger))
			usersHandler.Register(r)
		})
	}
	api(r)
	r.Route("/api", api)

	return r
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
