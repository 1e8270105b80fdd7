package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the JSON API under api and the action pages under pages.
// No route requires authentication: holding a manage link is the capability.
func RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup, h *Handler) {
	api.POST("/book-demo", h.BookDemo)
	api.GET("/available-slots", h.AvailableSlots)
	api.POST("/reschedule-demo", h.RescheduleDemo)
	api.POST("/cancel-demo", h.CancelDemo)

	pages.GET("/reschedule-demo", h.ReschedulePage)
	pages.GET("/cancel-demo", h.CancelPage)
}
