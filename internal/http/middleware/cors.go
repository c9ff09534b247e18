package middleware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSOptions configures the origin allow list.
type CORSOptions struct {
	// AllowedOrigins are matched exactly.
	AllowedOrigins []string
	// PreviewSuffix additionally admits https origins whose host ends
	// with this suffix, covering per-branch preview deployments.
	PreviewSuffix string
}

// CORS returns a CORS middleware that echoes back allowed origins.
// Because credentials are allowed, a wildcard origin is never emitted;
// unknown origins get no CORS headers at all.
func CORS(opts CORSOptions) fiber.Handler {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin != "" && originAllowed(origin, allowed, opts.PreviewSuffix) {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Credentials", "true")
			c.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Max-Age", "86400")
			c.Append(fiber.HeaderVary, fiber.HeaderOrigin)
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}

func originAllowed(origin string, allowed map[string]struct{}, previewSuffix string) bool {
	if _, ok := allowed[origin]; ok {
		return true
	}

	if previewSuffix == "" {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return false
	}
	return strings.HasSuffix(u.Host, previewSuffix)
}
