// handlers/journey_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"journey-progression/middleware"
)

func SetupJourneyRoutes(app *fiber.App, progressionService ProgressionAPI) {
	// Journey browsing needs a user so visited flags can be filled in.
	secured := app.Group("/journeys", middleware.UserContextMiddleware())

	secured.Get("/", func(c *fiber.Ctx) error {
		journeys, err := progressionService.ListJourneys(c.UserContext(), middleware.UserID(c), c.Query("q"))
		if err != nil {
			return respondError(c, "failed to list journeys", err)
		}
		return c.JSON(fiber.Map{"journeys": journeys})
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		detail, err := progressionService.GetJourney(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "failed to get journey", err)
		}
		return c.JSON(detail)
	})

	secured.Post("/:id/checkpoints/:checkpointId/visit", func(c *fiber.Ctx) error {
		outcome, err := progressionService.VisitCheckpoint(c.UserContext(), middleware.UserID(c), c.Params("id"), c.Params("checkpointId"))
		if err != nil {
			return respondError(c, "failed to record visit", err)
		}
		status := fiber.StatusOK
		if outcome.CheckpointNewlyVisited {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(outcome)
	})
}
