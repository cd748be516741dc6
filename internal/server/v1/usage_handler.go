package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/pkg/api"
)

type UsageHandler struct {
	service analytics.Service
}

func NewUsageHandler(service analytics.Service) *UsageHandler {
	return &UsageHandler{service: service}
}

func (h *UsageHandler) GetUsage(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(analytics.DefaultDays)))
	if err != nil || days < 0 {
		_ = c.Error(api.BadRequestError("Invalid 'days' parameter"))
		return
	}

	overview, err := h.service.GetUsageOverview(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch usage", err))
		return
	}

	c.JSON(http.StatusOK, overview)
}
