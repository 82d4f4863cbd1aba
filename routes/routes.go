package routes

import (
	"lingo-backend/config"
	"lingo-backend/controllers"
	"lingo-backend/middleware"
	"lingo-backend/services"

	"github.com/gofiber/fiber/v2"
)

// Services bundles everything the HTTP surface needs.
type Services struct {
	Curriculum *services.CurriculumService
	Resolver   *services.NextLessonResolver
	Progress   *services.ProgressService
	Streaks    *services.StreakService
	Dashboard  *services.DashboardService
}

func SetupRoutes(app *fiber.App, svcs Services, cfg *config.Config) {
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(cfg)

	// Game routes (curriculum reads)
	gameController := controllers.NewGameController(svcs.Curriculum, svcs.Resolver, cfg)
	game := app.Group("/api/game", authMiddleware)
	game.Get("/levels", gameController.GetGameLevels)
	game.Get("/levels/:id/stages", gameController.GetGameLevelStages)
	game.Get("/stages/:id/lessons", gameController.GetStageLessons)
	game.Get("/lessonTypes", gameController.GetLessonTypes)
	game.Get("/startedStage", gameController.GetStartedStage)
	game.Get("/nextLesson/:lessonId", gameController.GetNextLesson)

	// Progress routes
	progressController := controllers.NewProgressController(svcs.Progress, cfg)
	progress := app.Group("/api/progress", authMiddleware)
	progress.Get("/user", progressController.GetUserCurrentGameLevel)
	progress.Get("/gameLevels", progressController.GetGameLevelsProgress)
	progress.Post("/gameStages", progressController.GetGameStagesProgress)
	progress.Post("/lesson/start", progressController.StartLesson)
	progress.Post("/lesson/done", progressController.DoneLesson)

	// Streak routes
	streakController := controllers.NewStreakController(svcs.Streaks, cfg)
	streak := app.Group("/api/streak", authMiddleware)
	streak.Get("/", streakController.GetStreak)
	streak.Get("/preview", streakController.GetStreakPreview)
	streak.Get("/month", streakController.GetMonthlyStreak)
	streak.Post("/freeze", streakController.RecoverFreeze)
	streak.Get("/userId/:userId", adminMiddleware, streakController.GetStreakByUserID)

	// Dashboard routes
	dashboardController := controllers.NewDashboardController(svcs.Dashboard, cfg)
	dashboard := app.Group("/api/dashboard", authMiddleware, adminMiddleware)
	dashboard.Get("/overview", dashboardController.GetActivityOverview)
	dashboard.Get("/stats", dashboardController.GetActivityStats)

	// Admin routes for the curriculum
	adminGame := app.Group("/api/admin/game", authMiddleware, adminMiddleware)
	adminGame.Post("/levels", gameController.CreateGameLevel)
	adminGame.Put("/levels/order", gameController.ReorderGameLevels)
	adminGame.Put("/levels/:id", gameController.UpdateGameLevel)
	adminGame.Delete("/levels/:id", gameController.DeleteGameLevel)
	adminGame.Post("/levels/:id/stages", gameController.CreateStage)
	adminGame.Put("/levels/:id/stages/order", gameController.ReorderStages)
	adminGame.Put("/stages/:id", gameController.UpdateStage)
	adminGame.Delete("/stages/:id", gameController.DeleteStage)
	adminGame.Put("/stages/:id/active", gameController.SetStageActive)
	adminGame.Post("/stages/:id/lessons", gameController.CreateLesson)
	adminGame.Put("/stages/:id/lessons/order", gameController.ReorderLessons)
	adminGame.Put("/lessons/:id", gameController.UpdateLesson)
	adminGame.Delete("/lessons/:id", gameController.DeleteLesson)
}
