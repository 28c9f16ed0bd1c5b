package handler

import (
	"net/http"
	"time"

	"workshop/internal/middleware"
	"workshop/internal/model"
	"workshop/internal/service"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Auth
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Auth) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/api/statistics")
	statsGroup.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager))
	{
		statsGroup.GET("/accounting", h.GetAccountingSummary)
	}
}

// @Summary      Get accounting summary
// @Description  Revenue, pending balance and collected money for invoices created in the timeframe
// @Tags         Statistics
// @Produce      json
// @Param        timeframe query string false "month (default), year or all"
// @Success      200 {object} response.Response{data=model.AccountingSummary}
// @Failure      400 {object} response.Response "Unknown timeframe"
// @Failure      401 {object} response.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /api/statistics/accounting [get]
func (h *StatisticsHandler) GetAccountingSummary(c *gin.Context) {
	timeframe := c.DefaultQuery("timeframe", model.TimeframeMonth)

	summary, err := h.statisticsService.GetAccountingSummary(c.Request.Context(), timeframe, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
