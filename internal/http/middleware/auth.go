package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const callerLocal = "caller"

// AuthGate verifies the bearer token minted by the external identity
// provider and exposes its subject as the opaque caller identity. Token
// issuance is entirely outside this service; the gate only checks the
// signature and registered claims.
func AuthGate(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(callerLocal, claims.Subject)
		return c.Next()
	}
}

// Caller returns the authenticated subject set by AuthGate, or "" when the
// request did not pass through the gate.
func Caller(c *fiber.Ctx) string {
	if v, ok := c.Locals(callerLocal).(string); ok {
		return v
	}
	return ""
}
