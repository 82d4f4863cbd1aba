package controllers

import (
	"lingo-backend/config"
	"lingo-backend/models"
	"lingo-backend/services"
	"lingo-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type GameController struct {
	Curriculum *services.CurriculumService
	Resolver   *services.NextLessonResolver
	Cfg        *config.Config
}

func NewGameController(curriculum *services.CurriculumService, resolver *services.NextLessonResolver, cfg *config.Config) *GameController {
	return &GameController{Curriculum: curriculum, Resolver: resolver, Cfg: cfg}
}

// GetGameLevels godoc
// @Summary List game levels
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Router /game/levels [get]
func (gc *GameController) GetGameLevels(c *fiber.Ctx) error {
	levels, err := gc.Curriculum.GetGameLevels(c.Context())
	if err != nil {
		return utils.InternalServerError(c, "Could not load game levels")
	}
	return c.JSON(levels)
}

// GetGameLevelStages godoc
// @Summary List a level's stages with lessons
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Router /game/levels/{id}/stages [get]
func (gc *GameController) GetGameLevelStages(c *fiber.Ctx) error {
	levelID := c.Params("id")
	includeInactive := c.Query("all") == "true"

	stages, err := gc.Curriculum.GetGameLevelStages(c.Context(), levelID, includeInactive)
	if err != nil {
		return utils.InternalServerError(c, "Could not load stages")
	}
	return c.JSON(stages)
}

// GetStageLessons godoc
// @Summary List a stage's lessons
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Router /game/stages/{id}/lessons [get]
func (gc *GameController) GetStageLessons(c *fiber.Ctx) error {
	lessons, err := gc.Curriculum.ListLessons(c.Context(), c.Params("id"))
	if err != nil {
		return utils.InternalServerError(c, "Could not load lessons")
	}
	return c.JSON(lessons)
}

// GetLessonTypes godoc
// @Summary List the known lesson types
// @Tags game
// @Produce json
// @Security ApiKeyAuth
// @Router /game/lessonTypes [get]
func (gc *GameController) GetLessonTypes(c *fiber.Ctx) error {
	return c.JSON([]string{
		models.LessonTypeFlashcard,
		models.LessonTypeReward,
		models.LessonTypeQuiz,
	})
}

// GetStartedStage godoc
// @Summary Get the entry stage and lesson of a level
// @Description Empty gameLevelId means the first level of the curriculum
// @Tags game
// @Produce json
// @Success 200 {object} services.StartedStage
// @Security ApiKeyAuth
// @Router /game/startedStage [get]
func (gc *GameController) GetStartedStage(c *fiber.Ctx) error {
	started, err := gc.Curriculum.GetStartedStage(c.Context(), c.Query("gameLevelId"))
	if err != nil {
		return utils.InternalServerError(c, "Could not resolve started stage")
	}
	return c.JSON(started)
}

// GetNextLesson godoc
// @Summary Resolve the lesson after a completed one
// @Description Empty ids in the response mean the curriculum is exhausted
// @Tags game
// @Produce json
// @Success 200 {object} services.NextLesson
// @Security ApiKeyAuth
// @Router /game/nextLesson/{lessonId} [get]
func (gc *GameController) GetNextLesson(c *fiber.Ctx) error {
	next, err := gc.Resolver.Resolve(c.Context(), c.Params("lessonId"))
	if err != nil {
		return utils.InternalServerError(c, "Could not resolve next lesson")
	}
	return c.JSON(next)
}

// CreateGameLevel godoc
// @Summary Create a game level
// @Tags game-admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Router /admin/game/levels [post]
func (gc *GameController) CreateGameLevel(c *fiber.Ctx) error {
	var body struct {
		GameLevelName        string `json:"gameLevelName"`
		GameLevelDescription string `json:"gameLevelDescription"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	level, err := gc.Curriculum.AddGameLevel(c.Context(), body.GameLevelName, body.GameLevelDescription)
	if err != nil {
		return utils.InternalServerError(c, "Could not create game level")
	}
	return utils.Created(c, level)
}

// UpdateGameLevel godoc
// @Summary Update a game level
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/levels/{id} [put]
func (gc *GameController) UpdateGameLevel(c *fiber.Ctx) error {
	var body struct {
		GameLevelName        string `json:"gameLevelName"`
		GameLevelDescription string `json:"gameLevelDescription"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := gc.Curriculum.UpdateGameLevel(c.Context(), c.Params("id"), body.GameLevelName, body.GameLevelDescription); err != nil {
		return utils.InternalServerError(c, "Could not update game level")
	}
	return utils.NoContent(c)
}

// DeleteGameLevel godoc
// @Summary Delete a game level
// @Tags game-admin
// @Security ApiKeyAuth
// @Router /admin/game/levels/{id} [delete]
func (gc *GameController) DeleteGameLevel(c *fiber.Ctx) error {
	if err := gc.Curriculum.DeleteGameLevel(c.Context(), c.Params("id")); err != nil {
		return utils.InternalServerError(c, "Could not delete game level")
	}
	return utils.NoContent(c)
}

// ReorderGameLevels godoc
// @Summary Rewrite the level ordering
// @Description Order is reassigned 1-based from the given ID list
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/levels/order [put]
func (gc *GameController) ReorderGameLevels(c *fiber.Ctx) error {
	var body struct {
		GameLevelIDs []string `json:"gameLevelIds"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.GameLevelIDs) == 0 {
		return utils.BadRequest(c, "gameLevelIds is required")
	}

	if err := gc.Curriculum.UpdateGameLevelOrder(c.Context(), body.GameLevelIDs); err != nil {
		return utils.InternalServerError(c, "Could not reorder game levels")
	}
	return utils.NoContent(c)
}

// CreateStage godoc
// @Summary Create a stage with the default lesson template
// @Tags game-admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Router /admin/game/levels/{id}/stages [post]
func (gc *GameController) CreateStage(c *fiber.Ctx) error {
	var body struct {
		StageName string `json:"stageName"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	stage, err := gc.Curriculum.AddStage(c.Context(), c.Params("id"), body.StageName)
	if err != nil {
		return utils.InternalServerError(c, "Could not create stage")
	}
	return utils.Created(c, stage)
}

// UpdateStage godoc
// @Summary Rename a stage
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/stages/{id} [put]
func (gc *GameController) UpdateStage(c *fiber.Ctx) error {
	var body struct {
		StageName string `json:"stageName"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := gc.Curriculum.UpdateStage(c.Context(), c.Params("id"), body.StageName); err != nil {
		return utils.InternalServerError(c, "Could not update stage")
	}
	return utils.NoContent(c)
}

// DeleteStage godoc
// @Summary Delete a stage
// @Description Emits stage_deleted so progress rows get cleaned up
// @Tags game-admin
// @Security ApiKeyAuth
// @Router /admin/game/stages/{id} [delete]
func (gc *GameController) DeleteStage(c *fiber.Ctx) error {
	if err := gc.Curriculum.DeleteStage(c.Context(), c.Params("id")); err != nil {
		return utils.InternalServerError(c, "Could not delete stage")
	}
	return utils.NoContent(c)
}

// ReorderStages godoc
// @Summary Rewrite a level's stage ordering
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/levels/{id}/stages/order [put]
func (gc *GameController) ReorderStages(c *fiber.Ctx) error {
	var body struct {
		StageIDs []string `json:"stageIds"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.StageIDs) == 0 {
		return utils.BadRequest(c, "stageIds is required")
	}

	if err := gc.Curriculum.UpdateStageOrder(c.Context(), c.Params("id"), body.StageIDs); err != nil {
		return utils.InternalServerError(c, "Could not reorder stages")
	}
	return utils.NoContent(c)
}

// SetStageActive godoc
// @Summary Toggle a stage's active flag
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/stages/{id}/active [put]
func (gc *GameController) SetStageActive(c *fiber.Ctx) error {
	var body struct {
		IsActive bool `json:"isActive"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := gc.Curriculum.UpdateStageActive(c.Context(), c.Params("id"), body.IsActive); err != nil {
		return utils.InternalServerError(c, "Could not update stage")
	}
	return utils.NoContent(c)
}

// CreateLesson godoc
// @Summary Add a lesson to a stage
// @Description Inserted before the trailing reward lesson
// @Tags game-admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Router /admin/game/stages/{id}/lessons [post]
func (gc *GameController) CreateLesson(c *fiber.Ctx) error {
	var req services.LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	lesson, err := gc.Curriculum.AddLesson(c.Context(), c.Params("id"), req)
	if err != nil {
		return utils.InternalServerError(c, "Could not create lesson")
	}
	return utils.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update a lesson
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/lessons/{id} [put]
func (gc *GameController) UpdateLesson(c *fiber.Ctx) error {
	var req services.LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := gc.Curriculum.UpdateLesson(c.Context(), c.Params("id"), req); err != nil {
		return utils.InternalServerError(c, "Could not update lesson")
	}
	return utils.NoContent(c)
}

// DeleteLesson godoc
// @Summary Delete a lesson
// @Description Emits lesson_deleted so progress rows get cleaned up
// @Tags game-admin
// @Security ApiKeyAuth
// @Router /admin/game/lessons/{id} [delete]
func (gc *GameController) DeleteLesson(c *fiber.Ctx) error {
	if err := gc.Curriculum.DeleteLesson(c.Context(), c.Params("id")); err != nil {
		return utils.InternalServerError(c, "Could not delete lesson")
	}
	return utils.NoContent(c)
}

// ReorderLessons godoc
// @Summary Rewrite a stage's lesson ordering
// @Tags game-admin
// @Accept json
// @Security ApiKeyAuth
// @Router /admin/game/stages/{id}/lessons/order [put]
func (gc *GameController) ReorderLessons(c *fiber.Ctx) error {
	var body struct {
		LessonIDs []string `json:"lessonIds"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.LessonIDs) == 0 {
		return utils.BadRequest(c, "lessonIds is required")
	}

	if err := gc.Curriculum.UpdateLessonOrder(c.Context(), c.Params("id"), body.LessonIDs); err != nil {
		return utils.InternalServerError(c, "Could not reorder lessons")
	}
	return utils.NoContent(c)
}
