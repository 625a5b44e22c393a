package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/prepcode-api/internal/config"
	"github.com/noah-isme/prepcode-api/internal/handler"
	"github.com/noah-isme/prepcode-api/internal/middleware"
	"github.com/noah-isme/prepcode-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	LanguageHandler   *handler.LanguageHandler
	ProblemHandler    *handler.ProblemHandler
	SubmissionHandler *handler.SubmissionHandler
	JWTMiddleware     fiber.Handler
	// SubmitLimiter guards the routes that execute code. Defaults to a per-user limiter built from cfg.
	SubmitLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.LanguageHandler != nil {
		deps.LanguageHandler.Register(api.Group("/languages"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := app.Group("/api/v2", jwtMiddleware)

	if deps.ProblemHandler != nil {
		deps.ProblemHandler.Register(protected.Group("/problems"))
	}

	if deps.SubmissionHandler != nil {
		limiter := deps.SubmitLimiter
		if limiter == nil {
			limiter = middleware.RateLimit("submissions", cfg.SubmitRateLimit, cfg.SubmitRateWindow)
		}
		candidateOnly := middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{
			Role: middleware.AuthRoleCandidate,
		})

		submissions := protected.Group("/submissions")
		deps.SubmissionHandler.RegisterGrading(submissions, candidateOnly, limiter)
		deps.SubmissionHandler.Register(submissions)
	}
}
