package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
)

const (
	localUser   = "user"
	localClaims = "claims"
)

func setIdentity(c *fiber.Ctx, u *models.User, claims *utils.Claims) {
	c.Locals(localUser, u)
	c.Locals(localClaims, claims)
}

// CurrentUser returns the authenticated user, or nil on anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

func CurrentClaims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(localClaims).(*utils.Claims)
	return claims
}
