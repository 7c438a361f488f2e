package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	Env     string
	Version string
	Started time.Time
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":      time.Since(h.Started).Seconds(),
		"environment": h.Env,
		"version":     h.Version,
	})
}

var endpointIndex = fiber.Map{
	"auth": fiber.Map{
		"POST /api/auth/register":       "Register new freelancer",
		"POST /api/auth/login":          "Login user",
		"POST /api/auth/refresh":        "Refresh access token",
		"GET /api/auth/me":              "Get current user profile",
		"PATCH /api/auth/preferences":   "Update user preferences",
		"PATCH /api/auth/password":      "Change password",
		"POST /api/auth/logout":         "Logout user",
		"DELETE /api/auth/account":      "Delete account",
		"GET /api/auth/google/start":    "Start Google sign-in",
		"GET /api/auth/google/callback": "Google sign-in callback",
	},
	"freelancers": fiber.Map{
		"GET /api/freelancers":                               "Search freelancers with filters",
		"GET /api/freelancers/featured":                      "Get featured freelancers",
		"GET /api/freelancers/stats":                         "Get platform statistics",
		"GET /api/freelancers/:idOrSlug":                     "Get freelancer profile",
		"GET /api/freelancers/:id/portfolio/:portfolioId":    "Get portfolio item",
		"POST /api/freelancers/:id/testimonials":             "Submit testimonial",
		"POST /api/freelancers":                              "Create freelancer profile (auth)",
		"PUT /api/freelancers/:id":                           "Update freelancer profile (auth)",
		"POST /api/freelancers/:id/portfolio":                "Add portfolio item (auth)",
		"PUT /api/freelancers/:id/portfolio/:portfolioId":    "Update portfolio item (auth)",
		"DELETE /api/freelancers/:id/portfolio/:portfolioId": "Delete portfolio item (auth)",
		"PATCH /api/freelancers/:id/visibility":              "Update profile visibility (auth)",
		"PATCH /api/freelancers/:id/flags":                   "Update verification and premium flags (admin)",
	},
	"leads": fiber.Map{
		"POST /api/leads":               "Create new lead (public)",
		"GET /api/leads/verify/:token":  "Verify lead email",
		"GET /api/leads":                "Get leads for freelancer (auth)",
		"GET /api/leads/stats":          "Get lead statistics (auth)",
		"GET /api/leads/:id":            "Get specific lead (auth)",
		"PATCH /api/leads/:id/status":   "Update lead status (auth)",
		"PATCH /api/leads/:id/priority": "Update lead priority (auth)",
		"POST /api/leads/:id/notes":     "Add note to lead (auth)",
		"DELETE /api/leads/:id":         "Delete lead (auth)",
	},
	"realtime": fiber.Map{
		"GET /ws/leads?token=": "Live lead notifications (websocket)",
	},
}

func (h *HealthHandler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        "Mkhedmin.ma API",
		"description": "Find Moroccan digital freelancers instantly",
		"version":     h.Version,
		"endpoints":   endpointIndex,
	})
}
