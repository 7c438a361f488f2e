package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/middleware"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/services/leads"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type LeadService interface {
	Create(ctx context.Context, in validation.LeadInput, meta models.RequestMeta) (*leads.CreateResult, error)
	Verify(ctx context.Context, token string) (*leads.VerifyResult, error)
	List(ctx context.Context, caller *models.User, in validation.LeadListInput) (*leads.ListResult, error)
	Get(ctx context.Context, caller *models.User, id uuid.UUID) (models.LeadView, error)
	UpdateStatus(ctx context.Context, caller *models.User, id uuid.UUID, status string) (*models.Lead, error)
	UpdatePriority(ctx context.Context, caller *models.User, id uuid.UUID, priority string) (*models.Lead, error)
	AddNote(ctx context.Context, caller *models.User, id uuid.UUID, in validation.NoteInput) ([]models.LeadNote, error)
	Delete(ctx context.Context, caller *models.User, id uuid.UUID) error
	Stats(ctx context.Context, caller *models.User, timeframe int) (*leads.StatsResult, error)
}

var errLeadNotFound = apperr.NotFound("LEAD_NOT_FOUND", "Lead not found")

type LeadHandler struct {
	Leads LeadService
}

func requestMeta(c *fiber.Ctx) models.RequestMeta {
	return models.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referrer:  c.Get(fiber.HeaderReferer),
	}
}

func (h *LeadHandler) Create(c *fiber.Ctx) error {
	var req validation.LeadInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.Leads.Create(c.UserContext(), req, requestMeta(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *LeadHandler) Verify(c *fiber.Ctx) error {
	res, err := h.Leads.Verify(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *LeadHandler) List(c *fiber.Ctx) error {
	var q validation.LeadListInput
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	res, err := h.Leads.List(c.UserContext(), middleware.CurrentUser(c), q)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *LeadHandler) Stats(c *fiber.Ctx) error {
	res, err := h.Leads.Stats(c.UserContext(), middleware.CurrentUser(c), c.QueryInt("timeframe", 0))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *LeadHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id", errLeadNotFound)
	if err != nil {
		return err
	}
	lead, err := h.Leads.Get(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"lead": lead})
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *LeadHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id", errLeadNotFound)
	if err != nil {
		return err
	}
	var req statusReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	lead, err := h.Leads.UpdateStatus(c.UserContext(), middleware.CurrentUser(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Lead status updated successfully",
		"lead": fiber.Map{
			"id":           lead.ID,
			"status":       lead.Status,
			"isResponded":  lead.IsResponded,
			"responseTime": lead.ResponseTime,
		},
	})
}

type priorityReq struct {
	Priority string `json:"priority"`
}

func (h *LeadHandler) UpdatePriority(c *fiber.Ctx) error {
	id, err := paramID(c, "id", errLeadNotFound)
	if err != nil {
		return err
	}
	var req priorityReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	lead, err := h.Leads.UpdatePriority(c.UserContext(), middleware.CurrentUser(c), id, req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Lead priority updated successfully",
		"lead":    fiber.Map{"id": lead.ID, "priority": lead.Priority},
	})
}

func (h *LeadHandler) AddNote(c *fiber.Ctx) error {
	id, err := paramID(c, "id", errLeadNotFound)
	if err != nil {
		return err
	}
	var req validation.NoteInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	notes, err := h.Leads.AddNote(c.UserContext(), middleware.CurrentUser(c), id, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Note added successfully",
		"notes":   notes,
	})
}

func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id", errLeadNotFound)
	if err != nil {
		return err
	}
	if err := h.Leads.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Lead deleted successfully"})
}
