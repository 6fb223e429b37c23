package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const riderIDKey = "rider_id"

// JWTMiddleware validates bearer tokens and stores rider_id in locals.
// Browser websocket clients cannot set headers and pass access_token instead.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := ParseToken(secret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(riderIDKey, claims.RiderID)
		return c.Next()
	}
}

// RiderID returns the rider set by JWTMiddleware, or "" when absent.
func RiderID(c *fiber.Ctx) string {
	id, _ := c.Locals(riderIDKey).(string)
	return id
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
