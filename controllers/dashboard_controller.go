package controllers

import (
	"lingo-backend/config"
	"lingo-backend/services"
	"lingo-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type DashboardController struct {
	Dashboard *services.DashboardService
	Cfg       *config.Config
}

func NewDashboardController(dashboard *services.DashboardService, cfg *config.Config) *DashboardController {
	return &DashboardController{Dashboard: dashboard, Cfg: cfg}
}

// GetActivityOverview godoc
// @Summary Platform activity overview
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.ActivityOverview
// @Security ApiKeyAuth
// @Router /dashboard/overview [get]
func (dc *DashboardController) GetActivityOverview(c *fiber.Ctx) error {
	overview, err := dc.Dashboard.GetActivityOverview(c.Context())
	if err != nil {
		return utils.InternalServerError(c, "Could not load activity overview")
	}
	return c.JSON(overview)
}

// GetActivityStats godoc
// @Summary Active-user counts by period
// @Description period is one of day, month, year
// @Tags dashboard
// @Produce json
// @Success 200 {array} services.ActivityBucket
// @Security ApiKeyAuth
// @Router /dashboard/stats [get]
func (dc *DashboardController) GetActivityStats(c *fiber.Ctx) error {
	period := c.Query("period", "day")

	stats, err := dc.Dashboard.GetActivityStatsByPeriod(c.Context(), period)
	if err != nil {
		return utils.BadRequest(c, "Invalid period")
	}
	return c.JSON(stats)
}
