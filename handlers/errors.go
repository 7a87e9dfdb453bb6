// handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"journey-progression/progression"
	"journey-progression/utils"
)

// respondError maps service errors onto the {"error","cause"} body.
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, progression.ErrUnknownJourney),
		errors.Is(err, progression.ErrUnknownCheckpoint),
		errors.Is(err, gorm.ErrRecordNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, progression.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	case errors.Is(err, progression.ErrPersistence):
		status = fiber.StatusServiceUnavailable
	}

	if status >= fiber.StatusInternalServerError {
		utils.Logger.Error("❌ "+msg, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
