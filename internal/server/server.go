package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/claritel/admin-console/config"
	"github.com/claritel/admin-console/internal/handlers"
	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/internal/views"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        zerolog.Logger
}

// New constructs a Server with the console's routes and middleware.
func New(cfg config.Config, log zerolog.Logger) (*Server, error) {
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	api := platform.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	sessions := session.NewManager(cfg.SessionTTL, cfg.ChallengeTTL)
	cookies := session.NewCookieCodec(cfg.SessionSecret, cfg.SessionTTL, cfg.Env != "dev")
	guard := handlers.NewGuard(sessions, cookies, renderer, log)

	authHandler := handlers.NewAuthHandler(api, sessions, cookies, renderer, log, guard)
	userHandler := handlers.NewUserHandler(api, renderer, log, guard)
	tenantHandler := handlers.NewTenantHandler(api, renderer, log, guard)

	loginLimiter := httprate.LimitByIP(cfg.LoginRatePerMinute, time.Minute)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(log),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, authHandler, loginLimiter)
	handlers.UserRouter(router, userHandler)
	handlers.TenantRouter(router, tenantHandler)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      otelhttp.NewHandler(router, "admin-console"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("admin console listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(writer, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", writer.status).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
