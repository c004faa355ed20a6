package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProgressHandler     *handler.ProgressHandler
	EnrollmentHandler   *handler.EnrollmentHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	QuizHandler         *handler.QuizHandler
	ResourceHandler     *handler.ResourceHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ProgressHandler != nil {
		progress := api.Group("/progress", jwtMiddleware)
		deps.ProgressHandler.Register(progress, middleware.RateLimit("progress-events", cfg.EventRateLimit, cfg.EventRateWindow))
	}

	if deps.EnrollmentHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.EnrollmentHandler.Register(courses)
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)

		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.RegisterAssignmentRoutes(assignments)
		}
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.QuizHandler != nil {
		quizzes := api.Group("/quizzes", jwtMiddleware)
		deps.QuizHandler.Register(quizzes)
	}

	if deps.ResourceHandler != nil {
		resources := api.Group("/resources", jwtMiddleware, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
		deps.ResourceHandler.Register(resources)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
