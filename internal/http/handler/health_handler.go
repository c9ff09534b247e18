package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthPingTimeout = 2 * time.Second

// HealthDeps groups dependencies required by the health handlers.
type HealthDeps struct {
	Logger   *zap.Logger
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

// HealthHandler implements the root liveness and readiness endpoints.
type HealthHandler struct {
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *redis.Client
}

// NewHealthHandler creates a health handler with the provided dependencies.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:   logger,
		postgres: deps.Postgres,
		redis:    deps.Redis,
	}
}

// Register wires health routes onto the provided router.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/", h.Root)
	router.Get("/healthz", h.Readiness)
}

// Root is a plaintext liveness probe.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("Hello from the Shorty Backend!")
}

// Readiness reports per-dependency health.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(requestContext(c), healthPingTimeout)
	defer cancel()

	status := fiber.StatusOK
	postgresState := "ok"
	redisState := "ok"

	if h.postgres != nil {
		if err := h.postgres.Ping(ctx); err != nil {
			h.logger.Warn("postgres health check failed", zap.Error(err))
			postgresState = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.logger.Warn("redis health check failed", zap.Error(err))
			redisState = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"postgres": postgresState,
		"redis":    redisState,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
