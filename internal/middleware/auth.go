package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
)

// Authenticator resolves an access token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *utils.Claims, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func Authenticate(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, claims, err := auth.Authenticate(c.UserContext(), BearerToken(c))
		if err != nil {
			return err
		}
		setIdentity(c, u, claims)
		return c.Next()
	}
}

// OptionalAuthenticate attaches the user when a valid token is present and never rejects.
func OptionalAuthenticate(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return c.Next()
		}
		if u, claims, err := auth.Authenticate(c.UserContext(), token); err == nil {
			setIdentity(c, u, claims)
		}
		return c.Next()
	}
}
