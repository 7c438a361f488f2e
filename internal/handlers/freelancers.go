package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/middleware"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/freelancers"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type FreelancerService interface {
	Create(ctx context.Context, owner *models.User, in validation.FreelancerInput) (*models.Freelancer, error)
	Update(ctx context.Context, caller *models.User, id uuid.UUID, in validation.FreelancerInput) (*models.Freelancer, error)
	Get(ctx context.Context, idOrSlug string, viewer *models.User) (*models.Freelancer, error)
	AddPortfolioItem(ctx context.Context, caller *models.User, id uuid.UUID, in validation.PortfolioInput) (*models.PortfolioItem, error)
	UpdatePortfolioItem(ctx context.Context, caller *models.User, id, itemID uuid.UUID, in validation.PortfolioInput) (*models.PortfolioItem, error)
	RemovePortfolioItem(ctx context.Context, caller *models.User, id, itemID uuid.UUID) error
	GetPortfolioItem(ctx context.Context, id, itemID uuid.UUID) (*models.PortfolioItem, error)
	SetVisibility(ctx context.Context, caller *models.User, id uuid.UUID, in validation.VisibilityInput) (*models.Freelancer, error)
	AddTestimonial(ctx context.Context, id uuid.UUID, in validation.TestimonialInput) (*models.Testimonial, error)
	SetFlags(ctx context.Context, id uuid.UUID, in validation.FlagsInput) (*models.Freelancer, error)
	Search(ctx context.Context, in validation.SearchInput) (*freelancers.SearchResult, error)
	Featured(ctx context.Context, limit int) ([]models.FreelancerSummary, error)
	PlatformStats(ctx context.Context) (models.PlatformStats, error)
}

var (
	errFreelancerNotFound = apperr.NotFound("FREELANCER_NOT_FOUND", "Freelancer not found")
	errPortfolioNotFound  = apperr.NotFound("PORTFOLIO_ITEM_NOT_FOUND", "Portfolio item not found")
)

type FreelancerHandler struct {
	Freelancers FreelancerService
}

func (h *FreelancerHandler) freelancerID(c *fiber.Ctx) (uuid.UUID, error) {
	return paramID(c, "id", errFreelancerNotFound)
}

func (h *FreelancerHandler) itemIDs(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	id, err := h.freelancerID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := paramID(c, "portfolioId", errPortfolioNotFound)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return id, itemID, nil
}

func (h *FreelancerHandler) Search(c *fiber.Ctx) error {
	var q validation.SearchInput
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	res, err := h.Freelancers.Search(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *FreelancerHandler) Featured(c *fiber.Ctx) error {
	list, err := h.Freelancers.Featured(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"freelancers": list})
}

func (h *FreelancerHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.Freelancers.PlatformStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stats": stats})
}

// Get serves the full profile to its owner and admins, the visitor view to everyone else.
func (h *FreelancerHandler) Get(c *fiber.Ctx) error {
	viewer := middleware.CurrentUser(c)
	f, err := h.Freelancers.Get(c.UserContext(), c.Params("idOrSlug"), viewer)
	if err != nil {
		return err
	}
	if freelancers.CanManage(f, viewer) {
		return c.JSON(fiber.Map{"freelancer": f})
	}
	return c.JSON(fiber.Map{"freelancer": f.Detail()})
}

func (h *FreelancerHandler) Create(c *fiber.Ctx) error {
	var req validation.FreelancerInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	f, err := h.Freelancers.Create(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Freelancer profile created successfully",
		"freelancer": f,
	})
}

func (h *FreelancerHandler) Update(c *fiber.Ctx) error {
	id, err := h.freelancerID(c)
	if err != nil {
		return err
	}
	var req validation.FreelancerInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	f, err := h.Freelancers.Update(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":    "Freelancer profile updated successfully",
		"freelancer": f,
	})
}

func (h *FreelancerHandler) AddPortfolioItem(c *fiber.Ctx) error {
	id, err := h.freelancerID(c)
	if err != nil {
		return err
	}
	var req validation.PortfolioInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	item, err := h.Freelancers.AddPortfolioItem(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Portfolio item added successfully",
		"portfolioItem": item,
	})
}

func (h *FreelancerHandler) GetPortfolioItem(c *fiber.Ctx) error {
	id, itemID, err := h.itemIDs(c)
	if err != nil {
		return err
	}
	item, err := h.Freelancers.GetPortfolioItem(c.UserContext(), id, itemID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"portfolioItem": item})
}

func (h *FreelancerHandler) UpdatePortfolioItem(c *fiber.Ctx) error {
	id, itemID, err := h.itemIDs(c)
	if err != nil {
		return err
	}
	var req validation.PortfolioInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	item, err := h.Freelancers.UpdatePortfolioItem(c.UserContext(), middleware.CurrentUser(c), id, itemID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":       "Portfolio item updated successfully",
		"portfolioItem": item,
	})
}

func (h *FreelancerHandler) RemovePortfolioItem(c *fiber.Ctx) error {
	id, itemID, err := h.itemIDs(c)
	if err != nil {
		return err
	}
	if err := h.Freelancers.RemovePortfolioItem(c.UserContext(), middleware.CurrentUser(c), id, itemID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Portfolio item removed successfully"})
}

func (h *FreelancerHandler) SetVisibility(c *fiber.Ctx) error {
	id, err := h.freelancerID(c)
	if err != nil {
		return err
	}
	var req validation.VisibilityInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	f, err := h.Freelancers.SetVisibility(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":    "Visibility updated successfully",
		"visibility": f.Visibility,
	})
}

func (h *FreelancerHandler) AddTestimonial(c *fiber.Ctx) error {
	id, err := h.freelancerID(c)
	if err != nil {
		return err
	}
	var req validation.TestimonialInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	t, err := h.Freelancers.AddTestimonial(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Testimonial submitted for review",
		"testimonial": t,
	})
}

func (h *FreelancerHandler) SetFlags(c *fiber.Ctx) error {
	id, err := h.freelancerID(c)
	if err != nil {
		return err
	}
	var req validation.FlagsInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	f, err := h.Freelancers.SetFlags(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":    "Flags updated successfully",
		"freelancer": f.Summary(),
	})
}
