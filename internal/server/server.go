// Package server assembles the Fiber application: global middleware, the /api route table,
// the websocket endpoint and the metrics endpoint.
package server

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mkhedmin/mkhedmin-api/internal/config"
	"github.com/mkhedmin/mkhedmin-api/internal/handlers"
	"github.com/mkhedmin/mkhedmin-api/internal/middleware"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
)

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; " +
	"img-src 'self' data: https:; connect-src 'self'; font-src 'self'; object-src 'none'; " +
	"media-src 'self'; frame-src 'none'"

type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Redis  *redis.Client
	Auth   middleware.Authenticator

	Accounts    *handlers.AuthHandler
	Google      *handlers.GoogleOAuthHandler
	Freelancers *handlers.FreelancerHandler
	Leads       *handlers.LeadHandler
	Realtime    *handlers.RealtimeHandler
	Health      *handlers.HealthHandler
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "mkhedmin-api",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(d.Log, d.Config.IsProduction()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(helmet.New(helmet.Config{
		ContentSecurityPolicy:     contentSecurityPolicy,
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(d.Config.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Content-Type, Authorization, X-Requested-With",
		AllowCredentials: true,
	}))
	app.Use(middleware.RequestLogger(d.Log))
	app.Use(middleware.Metrics())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if d.Realtime != nil {
		app.Get("/ws/leads", d.Realtime.Upgrade, websocket.New(d.Realtime.Serve))
	}

	limit := func(l middleware.RateLimit) fiber.Handler {
		return middleware.NewRateLimiter(l, d.Redis, d.Config.RateLimitEnabled, d.Log)
	}
	authn := middleware.Authenticate(d.Auth)
	cache := middleware.NewCache(d.Redis, 5*time.Minute, d.Log)

	api := app.Group("/api", limit(middleware.GeneralLimit))
	api.Get("/health", d.Health.Health)
	api.Get("/", d.Health.Index)

	// auth
	auth := api.Group("/auth")
	auth.Post("/register", limit(middleware.AuthLimit), d.Accounts.Register)
	auth.Post("/login", limit(middleware.AuthLimit), d.Accounts.Login)
	auth.Post("/refresh", d.Accounts.Refresh)
	auth.Get("/me", authn, d.Accounts.Me)
	auth.Patch("/preferences", authn, d.Accounts.UpdatePreferences)
	auth.Patch("/password", authn, d.Accounts.ChangePassword)
	auth.Post("/logout", authn, d.Accounts.Logout)
	auth.Delete("/account", authn, d.Accounts.DeleteAccount)
	if d.Google != nil {
		auth.Get("/google/start", d.Google.GoogleStart)
		auth.Get("/google/callback", d.Google.GoogleCallback)
	}

	// freelancers
	fl := api.Group("/freelancers")
	fl.Get("/", limit(middleware.SearchLimit), d.Freelancers.Search)
	fl.Get("/featured", cache, d.Freelancers.Featured)
	fl.Get("/stats", cache, d.Freelancers.Stats)
	fl.Get("/:idOrSlug", middleware.OptionalAuthenticate(d.Auth), d.Freelancers.Get)
	fl.Get("/:id/portfolio/:portfolioId", d.Freelancers.GetPortfolioItem)
	fl.Post("/:id/testimonials", limit(middleware.TestimonialLimit), d.Freelancers.AddTestimonial)

	owner := middleware.RequireRoles(models.RoleFreelancer, models.RoleAdmin)
	fl.Post("/", authn, owner, d.Freelancers.Create)
	fl.Put("/:id", authn, owner, d.Freelancers.Update)
	fl.Post("/:id/portfolio", authn, owner, d.Freelancers.AddPortfolioItem)
	fl.Put("/:id/portfolio/:portfolioId", authn, owner, d.Freelancers.UpdatePortfolioItem)
	fl.Delete("/:id/portfolio/:portfolioId", authn, owner, d.Freelancers.RemovePortfolioItem)
	fl.Patch("/:id/visibility", authn, owner, d.Freelancers.SetVisibility)
	fl.Patch("/:id/flags", authn, middleware.RequireRoles(models.RoleAdmin), d.Freelancers.SetFlags)

	// leads
	ld := api.Group("/leads")
	ld.Post("/", limit(middleware.LeadLimit), d.Leads.Create)
	ld.Get("/verify/:token", d.Leads.Verify)

	freelancerOnly := middleware.RequireRoles(models.RoleFreelancer)
	ld.Get("/", authn, freelancerOnly, d.Leads.List)
	ld.Get("/stats", authn, freelancerOnly, d.Leads.Stats)
	ld.Get("/:id", authn, freelancerOnly, d.Leads.Get)
	ld.Patch("/:id/status", authn, freelancerOnly, d.Leads.UpdateStatus)
	ld.Patch("/:id/priority", authn, freelancerOnly, d.Leads.UpdatePriority)
	ld.Post("/:id/notes", authn, freelancerOnly, d.Leads.AddNote)
	ld.Delete("/:id", authn, freelancerOnly, d.Leads.Delete)

	app.Use(middleware.NotFound)
	return app
}
