// handlers/progression_routes.go
package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"journey-progression/middleware"
	"journey-progression/models"
	"journey-progression/progression"
	"journey-progression/services"
)

// ProgressionAPI is the slice of services.ProgressionService the routes use.
type ProgressionAPI interface {
	RankTable() []progression.Rank
	EnsureProfile(ctx context.Context, userID, name string) (*models.UserProfile, error)
	GetProgress(ctx context.Context, userID string) (*services.ProgressSummary, error)
	GetUserHistory(ctx context.Context, userID string, page, size int) (*services.HistoryPage, error)
	GainXP(ctx context.Context, userID string, amount int64, reason string) (*services.GrantOutcome, error)
	ListJourneys(ctx context.Context, userID, query string) ([]services.JourneySummary, error)
	GetJourney(ctx context.Context, userID, idOrSlug string) (*services.JourneyDetail, error)
	VisitCheckpoint(ctx context.Context, userID, journeyID, checkpointID string) (*services.VisitOutcome, error)
}

type BadgeLister interface {
	ListUserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
}

type profileRequest struct {
	Name string `json:"name" validate:"max=120"`
}

func SetupProgressionRoutes(app *fiber.App, progressionService ProgressionAPI, badgeService BadgeLister) {
	// 🔓 Rank table is public (gateway auth still applies)
	app.Get("/ranks", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ranks": progressionService.RankTable()})
	})

	// 🔐 Secured routes require user context
	secured := app.Group("/user", middleware.UserContextMiddleware())

	secured.Post("/profile", func(c *fiber.Ctx) error {
		var req profileRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}
		prof, err := progressionService.EnsureProfile(c.UserContext(), middleware.UserID(c), req.Name)
		if err != nil {
			return respondError(c, "failed to save profile", err)
		}
		return c.JSON(prof)
	})

	secured.Get("/progress", func(c *fiber.Ctx) error {
		summary, err := progressionService.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to get progress", err)
		}
		return c.JSON(summary)
	})

	secured.Get("/progress/history", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		history, err := progressionService.GetUserHistory(c.UserContext(), middleware.UserID(c), page, size)
		if err != nil {
			return respondError(c, "failed to get history", err)
		}
		return c.JSON(history)
	})

	secured.Get("/progress/badges", func(c *fiber.Ctx) error {
		badges, err := badgeService.ListUserBadges(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to get badges", err)
		}

		response := make([]fiber.Map, 0, len(badges))
		for _, ub := range badges {
			response = append(response, fiber.Map{
				"id":          ub.ID,
				"code":        ub.BadgeType.Code,
				"name":        ub.BadgeType.Name,
				"description": ub.BadgeType.Description,
				"rarity":      ub.BadgeType.Rarity,
				"awarded_at":  ub.AwardedAt,
			})
		}
		return c.JSON(response)
	})
}
