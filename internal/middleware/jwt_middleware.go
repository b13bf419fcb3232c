package middleware

import (
	"strings"

	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SessionCookie is the cookie carrying the Redis session id.
const SessionCookie = "session_id"

const userIDKey = "user_id"

// AuthRequired is a Fiber middleware that resolves the caller from a Bearer JWT or,
// failing that, the session cookie.
func AuthRequired(authService *services.AuthService, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			sessionID := c.Cookies(SessionCookie)
			if sessionID == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Authorization header or session cookie is required",
				})
			}
			userID, err := authService.ResolveSession(c.UserContext(), sessionID)
			if err != nil {
				logger.Debug("session lookup failed", zap.Error(err))
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Invalid or expired session",
				})
			}
			c.Locals(userIDKey, userID)
			return c.Next()
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug("JWT validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}
		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Token carries no user",
			})
		}

		c.Locals(userIDKey, userID)
		c.Locals("username", claims["username"])
		return c.Next()
	}
}

// UserID returns the caller resolved by AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
