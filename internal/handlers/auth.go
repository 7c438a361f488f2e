package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/mkhedmin/mkhedmin-api/internal/middleware"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/accounts"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type AccountService interface {
	Register(ctx context.Context, in validation.RegisterInput) (*accounts.AuthResult, error)
	Login(ctx context.Context, in validation.LoginInput) (*accounts.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (utils.TokenPair, error)
	Me(ctx context.Context, u *models.User) (*accounts.MeResult, error)
	UpdatePreferences(ctx context.Context, u *models.User, in validation.PreferencesInput) (models.Preferences, error)
	ChangePassword(ctx context.Context, u *models.User, in validation.ChangePasswordInput) error
	Logout(ctx context.Context, claims *utils.Claims) error
	DeleteAccount(ctx context.Context, u *models.User) error
	LoginWithGoogle(ctx context.Context, email string) (*accounts.AuthResult, error)
}

type AuthHandler struct {
	Accounts AccountService
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req validation.RegisterInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.Accounts.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req validation.LoginInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.Accounts.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	pair, err := h.Accounts.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Token refreshed successfully",
		"tokens":  pair,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	res, err := h.Accounts.Me(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *AuthHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req validation.PreferencesInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	prefs, err := h.Accounts.UpdatePreferences(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":     "Preferences updated successfully",
		"preferences": prefs,
	})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req validation.ChangePasswordInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.Accounts.ChangePassword(c.UserContext(), middleware.CurrentUser(c), req); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Accounts.Logout(c.UserContext(), middleware.CurrentClaims(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	if err := h.Accounts.DeleteAccount(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
