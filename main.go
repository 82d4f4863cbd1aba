package main

import (
	"context"
	"log"
	"time"

	"lingo-backend/clients"
	"lingo-backend/config"
	"lingo-backend/pkg/cache"
	"lingo-backend/pkg/queue"
	"lingo-backend/routes"
	"lingo-backend/services"
	"lingo-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Optional collaborators: the service keeps running without them.
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		logger.Printf("Redis unavailable, curriculum cache disabled: %v", err)
		redisClient = nil
	}

	rabbit, err := queue.NewRabbitMQClient(cfg)
	if err != nil {
		logger.Printf("RabbitMQ unavailable, events disabled: %v", err)
		rabbit = nil
	}

	location, err := time.LoadLocation(cfg.StreakTimezone)
	if err != nil {
		log.Fatalf("Error loading streak timezone %q: %v", cfg.StreakTimezone, err)
	}

	// Wire services
	var publisher queue.Publisher
	if rabbit != nil {
		publisher = rabbit
	}
	curriculum := services.NewCurriculumService(db, redisClient, publisher, logger)
	resolver := services.NewNextLessonResolver(curriculum)
	streaks := services.NewStreakService(db, location, services.FreezePolicy(cfg.StreakFreezePolicy), logger)
	energy := clients.NewEnergyClient(cfg.EnergyServiceURL)
	progress := services.NewProgressService(db, curriculum, streaks, publisher, energy, logger)
	dashboard := services.NewDashboardService(db, logger)

	// Consume inbound events from the sibling services
	if rabbit != nil {
		consumer := services.NewEventConsumer(rabbit, progress, logger)
		if err := consumer.Start(context.Background()); err != nil {
			logger.Printf("Error starting event consumer: %v", err)
		}
	}

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(utils.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Services{
		Curriculum: curriculum,
		Resolver:   resolver,
		Progress:   progress,
		Streaks:    streaks,
		Dashboard:  dashboard,
	}, cfg)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
