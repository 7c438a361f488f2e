package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
)

var (
	errAuthRequired      = apperr.Unauthorized("AUTH_REQUIRED", "Authentication required")
	errInsufficientRoles = apperr.Forbidden("INSUFFICIENT_PERMISSIONS", "Insufficient permissions")
)

// RequireRoles must run after Authenticate.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[models.Role(strings.ToLower(string(r)))] = true
	}

	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return errAuthRequired
		}
		if !allowedSet[u.Role] {
			return errInsufficientRoles
		}
		return c.Next()
	}
}
