package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/velichkin/shorty/config"
	"github.com/velichkin/shorty/internal/app/service"
	inthttp "github.com/velichkin/shorty/internal/http/handler"
	"github.com/velichkin/shorty/internal/http/middleware"
	"github.com/velichkin/shorty/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger      *zap.Logger
	Config      *config.Config
	Postgres    *pgxpool.Pool
	Redis       *redis.Client
	Tokens      *util.TokenSigner
	AuthService service.AuthService
	LinkService service.LinkService
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
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

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: s.deps.Config.CORS.AllowedOrigins,
		PreviewSuffix:  s.deps.Config.CORS.PreviewSuffix,
	}))
	s.app.Use(middleware.Logger(s.deps.Logger))

	if s.deps.Redis != nil {
		s.app.Use("/api", middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	healthHandler := inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger:   s.deps.Logger,
		Postgres: s.deps.Postgres,
		Redis:    s.deps.Redis,
	})
	healthHandler.Register(s.app)

	authHandler := inthttp.NewAuthHandler(inthttp.AuthDeps{
		Logger: s.deps.Logger,
		Auth:   s.deps.AuthService,
	})
	authHandler.Register(s.app)

	authGuard := middleware.RequireAuth(s.deps.Tokens, s.deps.Logger)
	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.LinkService,
	})
	apiHandler.Register(s.app, authGuard)
}
