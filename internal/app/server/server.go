package server

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkmint/linkmint/internal/app/service"
	inthttp "github.com/linkmint/linkmint/internal/http/handler"
	"github.com/linkmint/linkmint/internal/http/middleware"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger           *zap.Logger
	Postgres         *pgxpool.Pool
	Redis            *redis.Client
	NATS             *nats.Conn
	JetStream        nats.JetStreamContext
	LinkService      service.LinkService
	ResolvePublisher *service.ResolvePublisher
	BaseURL          string
	JWTSecret        []byte
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	var gate fiber.Handler
	if len(s.deps.JWTSecret) > 0 {
		gate = middleware.AuthGate(s.deps.JWTSecret)
	}

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.LinkService,
		BaseURL:     s.deps.BaseURL,
		AuthGate:    gate,
	})
	apiHandler.Register(s.app)

	// The catch-all /:code route registers last so it cannot shadow /api.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:           s.deps.Logger,
		LinkService:      s.deps.LinkService,
		ResolvePublisher: s.deps.ResolvePublisher,
		Ping:             s.pingBackends,
	})
	redirectHandler.Register(s.app)
}

// pingBackends verifies the stores the request path depends on.
func (s *Server) pingBackends(c *fiber.Ctx) error {
	ctx := c.Context()
	if s.deps.Postgres != nil {
		if err := s.deps.Postgres.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
