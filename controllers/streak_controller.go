package controllers

import (
	"strconv"
	"time"

	"lingo-backend/config"
	"lingo-backend/services"
	"lingo-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type StreakController struct {
	Streaks *services.StreakService
	Cfg     *config.Config
}

func NewStreakController(streaks *services.StreakService, cfg *config.Config) *StreakController {
	return &StreakController{Streaks: streaks, Cfg: cfg}
}

// GetStreak godoc
// @Summary Get streak info
// @Description Returns the current streak and last seven days
// @Tags streak
// @Produce json
// @Success 200 {object} services.StreakInfo
// @Security ApiKeyAuth
// @Router /streak [get]
func (sc *StreakController) GetStreak(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	info, err := sc.Streaks.GetStreakInfo(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load streak")
	}

	return c.JSON(info)
}

// GetStreakByUserID godoc
// @Summary Get streak info for a user
// @Tags streak
// @Produce json
// @Success 200 {object} services.StreakInfo
// @Security ApiKeyAuth
// @Router /streak/userId/{userId} [get]
func (sc *StreakController) GetStreakByUserID(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return utils.BadRequest(c, "Missing user ID")
	}

	info, err := sc.Streaks.GetStreakInfo(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load streak")
	}

	return c.JSON(info)
}

// GetStreakPreview godoc
// @Summary Preview and reconcile the streak
// @Description Applies freeze credits to any gap since the last activity
// @Tags streak
// @Produce json
// @Success 200 {object} services.StreakPreview
// @Security ApiKeyAuth
// @Router /streak/preview [get]
func (sc *StreakController) GetStreakPreview(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	preview, err := sc.Streaks.PreviewAndApplyFreeze(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not preview streak")
	}

	return c.JSON(preview)
}

// GetMonthlyStreak godoc
// @Summary Get the monthly streak calendar
// @Tags streak
// @Produce json
// @Security ApiKeyAuth
// @Router /streak/month [get]
func (sc *StreakController) GetMonthlyStreak(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		return utils.BadRequest(c, "Invalid month")
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 1 {
		return utils.BadRequest(c, "Invalid year")
	}

	days, err := sc.Streaks.GetMonthlyStreak(c.Context(), userID, time.Month(month), year)
	if err != nil {
		return utils.InternalServerError(c, "Could not load monthly streak")
	}

	return c.JSON(days)
}

// RecoverFreeze godoc
// @Summary Grant freeze credits
// @Description Adds the fixed recovery amount after a paid recovery
// @Tags streak
// @Produce json
// @Security ApiKeyAuth
// @Router /streak/freeze [post]
func (sc *StreakController) RecoverFreeze(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, sc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	available, err := sc.Streaks.GrantFreeze(c.Context(), userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not grant freeze")
	}

	return c.JSON(fiber.Map{
		"freezeAvailable": available,
	})
}
