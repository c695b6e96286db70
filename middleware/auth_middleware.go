package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// SessionRequired rejects requests while no forecast session is open.
func SessionRequired(open func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !open() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"kind":    "Unauthorized",
				"message": "Not logged in. Please log in to continue.",
				"reauth":  true,
			})
		}
		return c.Next()
	}
}
