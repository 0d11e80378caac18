package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/leaderboard"
)

// Pinger is the health-check slice of the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHTTPApp builds the fiber app serving liveness, readiness, and the
// leaderboard read surface.
func NewHTTPApp(db Pinger, board *leaderboard.Service, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Battle server is running!")
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := board.Standings(c.Context())
		if err != nil {
			logger.Error("leaderboard query failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load standings",
			})
		}
		return c.JSON(entries)
	})

	return app
}
