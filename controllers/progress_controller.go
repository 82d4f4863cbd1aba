package controllers

import (
	"lingo-backend/config"
	"lingo-backend/services"
	"lingo-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Progress *services.ProgressService
	Cfg      *config.Config
}

func NewProgressController(progress *services.ProgressService, cfg *config.Config) *ProgressController {
	return &ProgressController{Progress: progress, Cfg: cfg}
}

// GetUserCurrentGameLevel godoc
// @Summary Get current game level
// @Description Returns the level containing the user's active stage
// @Tags progress
// @Produce json
// @Success 200 {object} services.CurrentGameLevel
// @Security ApiKeyAuth
// @Router /progress/user [get]
func (pc *ProgressController) GetUserCurrentGameLevel(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	current, err := pc.Progress.GetUserCurrentGameLevelProgress(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load current game level")
	}

	return c.JSON(current)
}

// GetGameLevelsProgress godoc
// @Summary Get per-level progress
// @Description Returns stage completion counts for every game level
// @Tags progress
// @Produce json
// @Success 200 {array} services.GameLevelProgress
// @Security ApiKeyAuth
// @Router /progress/gameLevels [get]
func (pc *ProgressController) GetGameLevelsProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	progress, err := pc.Progress.GetGameLevelsProgress(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load game level progress")
	}

	return c.JSON(progress)
}

// GetGameStagesProgress godoc
// @Summary Get stage progress detail
// @Description Returns the user's attempts for a set of stages
// @Tags progress
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Router /progress/gameStages [post]
func (pc *ProgressController) GetGameStagesProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var body struct {
		StageIDs []string `json:"stageIds"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	progress, err := pc.Progress.GetGameStagesProgress(c.Context(), userID, body.StageIDs)
	if err != nil {
		return utils.InternalServerError(c, "Could not load stage progress")
	}

	return c.JSON(progress)
}

// StartLesson godoc
// @Summary Start a lesson
// @Description Checks energy and notifies the user service
// @Tags progress
// @Produce json
// @Success 200 {object} services.StartLessonResult
// @Security ApiKeyAuth
// @Router /progress/lesson/start [post]
func (pc *ProgressController) StartLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	result, err := pc.Progress.StartLesson(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not start lesson")
	}

	return c.JSON(result)
}

// DoneLesson godoc
// @Summary Complete a lesson
// @Description Marks the lesson attempt done and advances progress
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} services.DoneLessonResult
// @Security ApiKeyAuth
// @Router /progress/lesson/done [post]
func (pc *ProgressController) DoneLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req services.DoneLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if req.UserLessonProgressID == "" {
		return utils.BadRequest(c, "userLessonProgressId is required")
	}

	result, err := pc.Progress.DoneLesson(c.Context(), userID, req)
	if err != nil {
		// The whole transaction rolled back; safe for the client to retry.
		return utils.InternalServerError(c, "Could not complete lesson")
	}

	return c.JSON(result)
}
