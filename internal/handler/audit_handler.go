package handler

import (
	"pharmacy/internal/middleware"
	"pharmacy/internal/model"
	"pharmacy/internal/service"
	"pharmacy/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/activity-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RolePharmacist))
	{
		group.GET("", h.ListActivityLogs)
	}
}

// ListActivityLogs returns the audit trail newest first with acting users joined
// @Summary      Get activity logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]service.ActivityLogResponse}
// @Failure      403    {object}  response.Response
// @Router       /api/activity-logs [get]
func (h *ActivityHandler) ListActivityLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.activityService.List(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writePage(c, logs, p, total)
}
