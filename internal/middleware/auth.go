// Package middleware provides the HTTP middleware chain: authentication, rate limiting, logging, metrics and tracing.
package middleware

import (
	"context"
	"strings"

	"arcade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenHeader carries the session token on authenticated requests.
const TokenHeader = "x-auth-token"

// TokenVerifier resolves a session token to the caller's user ID.
type TokenVerifier interface {
	Verify(token string) (models.ID, error)
}

// AuthRequired rejects requests without a valid session token and stores the
// caller's ID in c.Locals("userID") and in the request context.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(TokenHeader))
		if token == "" {
			AuthFailures.WithLabelValues("missing").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(models.Response(
				models.NewUnauthenticatedError("No token, authorization denied"),
			))
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			AuthFailures.WithLabelValues("invalid").Inc()
			Logger.DebugContext(c.UserContext(), "token rejected", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(models.Response(
				models.NewInvalidTokenError("Token is not valid"),
			))
		}

		c.Locals("userID", userID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		return c.Next()
	}
}

// UserID returns the authenticated caller set by AuthRequired.
func UserID(c *fiber.Ctx) (models.ID, bool) {
	id, ok := c.Locals("userID").(models.ID)
	return id, ok && !id.IsZero()
}
