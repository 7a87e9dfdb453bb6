// handlers/admin_routes.go
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"journey-progression/middleware"
	"journey-progression/services"
)

type CatalogSyncer interface {
	Sync(ctx context.Context) (services.SyncReport, error)
}

type grantRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	XP     int64  `json:"xp" validate:"required,min=1"`
	Reason string `json:"reason" validate:"max=255"`
}

func SetupAdminRoutes(app *fiber.App, progressionService ProgressionAPI, catalog CatalogSyncer) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req grantRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}
		outcome, err := progressionService.GainXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, "XP award failed", err)
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"grant":   outcome,
		})
	})

	adminGroup.Post("/catalog/sync", func(c *fiber.Ctx) error {
		report, err := catalog.Sync(c.UserContext())
		if err != nil {
			return respondError(c, "catalog sync failed", err)
		}
		return c.JSON(report)
	})
}
