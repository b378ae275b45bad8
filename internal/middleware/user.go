package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// UserHeader carries the caller's id, set by the gateway in front of the API.
const UserHeader = "X-User-ID"

const userKey = "user_id"

// UserMiddleware copies the caller id from UserHeader into the request locals.
// Requests without the header are attributed to "anonymous".
func UserMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(UserHeader))
		if id == "" {
			id = "anonymous"
		}
		c.Locals(userKey, id)
		return c.Next()
	}
}

// GetUserID extracts the caller id from the Fiber context.
func GetUserID(c fiber.Ctx) string {
	id, ok := c.Locals(userKey).(string)
	if !ok {
		return "anonymous"
	}
	return id
}
