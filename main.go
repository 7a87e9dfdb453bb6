package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"journey-progression/config"
	"journey-progression/database"
	"journey-progression/handlers"
	"journey-progression/middleware"
	"journey-progression/services"
	"journey-progression/utils"
	"journey-progression/workers"
)

func main() {
	cfg, envFileFound, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("❌ failed to initialize logger: %v", err)
	}
	defer func() { _ = utils.Logger.Sync() }()
	if !envFileFound {
		utils.Logger.Info("⚠️  No .env file found, reading environment variables directly")
	}

	ranks, err := config.LoadRankTable(cfg.RanksFile)
	if err != nil {
		utils.Logger.Fatal("❌ invalid rank table", zap.String("file", cfg.RanksFile), zap.Error(err))
	}

	db, err := database.Open(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		utils.Logger.Fatal("❌ failed to open database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	badgeService := services.NewBadgeService(db)
	if err := badgeService.SeedBadgeTypes(ctx); err != nil {
		utils.Logger.Fatal("❌ failed to seed badge types", zap.Error(err))
	}
	progressionService := services.NewProgressionService(db, ranks, cfg.XPPerCheckpoint, badgeService)

	catalogService := services.NewCatalogService(db, catalogSource(ctx, cfg), cfg.XPPerCheckpoint)
	if _, err := catalogService.Sync(ctx); err != nil {
		utils.Logger.Fatal("❌ initial catalog sync failed", zap.Error(err))
	}
	sched, err := catalogService.StartCatalogScheduler(ctx, cfg.CatalogSyncInterval)
	if err != nil {
		utils.Logger.Fatal("❌ failed to start catalog scheduler", zap.Error(err))
	}

	if cfg.ProfileSyncURL != "" {
		workers.NewProfileSyncWorker(progressionService, cfg.ProfileSyncURL, cfg.ServiceToken, cfg.ProfileSyncInterval).Start(ctx)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Probes and scraping bypass the gateway.
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 🔐❗ Everything below must come from the gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	handlers.SetupProgressionRoutes(app, progressionService, badgeService)
	handlers.SetupJourneyRoutes(app, progressionService)
	handlers.SetupAdminRoutes(app, progressionService, catalogService)

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			utils.Logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	utils.Logger.Info("✅ Server running",
		zap.String("port", cfg.AppPort),
		zap.Int("ranks", len(ranks.Ranks())),
		zap.Int64("xp_per_checkpoint", cfg.XPPerCheckpoint),
		zap.String("cors_origins", allowedOrigins),
	)

	<-ctx.Done()
	utils.Logger.Info("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		utils.Logger.Warn("scheduler shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		utils.Logger.Warn("server shutdown", zap.Error(err))
	}
}

// catalogSource prefers R2, then a local file, then the built-in journeys.
func catalogSource(ctx context.Context, cfg config.AppConfig) services.CatalogSource {
	switch {
	case cfg.CatalogFromR2():
		r2, err := utils.NewR2Client(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret)
		if err != nil {
			utils.Logger.Fatal("❌ failed to initialize R2 client", zap.Error(err))
		}
		return services.R2Catalog(r2, cfg.CatalogBucket, cfg.CatalogKey)
	case cfg.CatalogFile != "":
		return services.FileCatalog(cfg.CatalogFile)
	default:
		return services.EmbeddedCatalog()
	}
}
