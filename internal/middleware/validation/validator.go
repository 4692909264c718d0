package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// handlePattern covers usernames on both supported platforms. Anything
// outside it is rejected before a single network call is made.
var handlePattern = regexp.MustCompile(`^@?[A-Za-z0-9._\-]{1,64}$`)

var supportedPlatforms = map[string]bool{
	"instagram": true,
	"tiktok":    true,
}

type Config struct {
	MaxHandles int
	Logger     *zap.Logger
}

// Middleware shape-checks analysis requests so malformed input fails
// fast and loud. Handlers still bind the body themselves; this layer
// only guards the gate.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxHandles == 0 {
		cfg.MaxHandles = 5
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		if strings.Contains(c.Path(), "/api/v1/analyze") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			userID, ok := req["user_id"].(string)
			if !ok || userID == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "user_id is required and must be a string",
				})
			}

			targets, ok := req["targets"].([]interface{})
			if !ok || len(targets) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "targets is required and must be a non-empty array",
				})
			}
			if len(targets) > cfg.MaxHandles {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "too many targets in one request",
				})
			}

			for _, raw := range targets {
				target, ok := raw.(map[string]interface{})
				if !ok {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "each target must be an object with platform and handle",
					})
				}

				platform, _ := target["platform"].(string)
				if !supportedPlatforms[platform] {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "unsupported platform: " + platform,
					})
				}

				handle, _ := target["handle"].(string)
				if !handlePattern.MatchString(handle) {
					if cfg.Logger != nil {
						cfg.Logger.Warn("Rejected malformed handle",
							zap.String("ip", c.IP()),
							zap.String("platform", platform),
						)
					}
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "invalid handle for platform " + platform,
					})
				}
			}
		}

		return c.Next()
	}
}
