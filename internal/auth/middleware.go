package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const CtxUserIDKey = "user_id"

const msgUnauthorized = "Missing or invalid token"

// JWTMiddleware admits requests carrying a valid "Authorization: Bearer"
// token and stores the user id in the request locals.
func JWTMiddleware(tokens *TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, msgUnauthorized)
		}

		userID, err := tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, msgUnauthorized)
		}

		c.Locals(CtxUserIDKey, userID)
		return c.Next()
	}
}

// UserID returns the id stored by JWTMiddleware.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	return id, ok
}
