package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/awards-portal-api/internal/config"
	"github.com/noah-isme/awards-portal-api/internal/handler"
	"github.com/noah-isme/awards-portal-api/internal/middleware"
	"github.com/noah-isme/awards-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AwardHandler        *handler.AwardHandler
	ApplicationHandler  *handler.ApplicationHandler
	ReviewHandler       *handler.ReviewHandler
	UploadHandler       *handler.UploadHandler
	ActivityHandler     *handler.AdminActivityHandler
	NotificationHandler *handler.NotificationHandler
	HealthProbes        map[string]handler.HealthProbe
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Published awards are visible to any signed-in user.
	if deps.AwardHandler != nil {
		deps.AwardHandler.RegisterPublic(api.Group("/awards", jwtMiddleware, guard(middleware.AuthRoleAny)))
	}

	student := api.Group("/student", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleStudent))
	if deps.ApplicationHandler != nil {
		window := cfg.SubmitRateWindow
		if window <= 0 {
			window = time.Minute
		}
		submitLimiter := middleware.RateLimit("application-submit", cfg.SubmitRateLimit, window)
		deps.ApplicationHandler.Register(student, submitLimiter)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(student.Group("/notifications"))
	}

	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(api.Group("/uploads", jwtMiddleware, guard(middleware.AuthRoleAny)))
	}

	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(api.Group("/review", jwtMiddleware, guard(middleware.AuthRoleReviewer)))
	}

	admin := api.Group("/admin", jwtMiddleware, guard(middleware.AuthRoleAdmin))
	if deps.AwardHandler != nil {
		deps.AwardHandler.RegisterAdmin(admin.Group("/awards"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}

func guard(role string) fiber.Handler {
	return middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{
		Role:        role,
		RequireUser: true,
	})
}
