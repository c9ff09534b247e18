package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/velichkin/shorty/internal/http/util"
	"go.uber.org/zap"
)

// UserIDKey is the fiber.Locals key under which the authenticated user's
// id is stored.
const UserIDKey = "user_id"

const bearerScheme = "Bearer "

// RequireAuth verifies the Authorization header and stores the user id in
// the request locals. The only accepted convention is "Bearer <token>".
func RequireAuth(tokens *util.TokenSigner, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, bearerScheme) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization required",
			})
		}

		token := strings.TrimSpace(header[len(bearerScheme):])
		userID, err := tokens.Parse(token)
		if err != nil {
			logger.Debug("rejected bearer token", zap.Error(err), zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// AuthenticatedUserID returns the user id stored by RequireAuth, or "".
func AuthenticatedUserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(UserIDKey).(string); ok {
		return id
	}
	return ""
}
