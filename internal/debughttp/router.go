package debughttp

import (
	"github.com/gin-gonic/gin"

	"github.com/amuxd/amuxd/internal/common/logger"
	"github.com/amuxd/amuxd/internal/events"
	"github.com/amuxd/amuxd/internal/session/registry"
)

// SetupRoutes configures the debug HTTP API routes.
// router should be the /api/v1 group.
func SetupRoutes(router *gin.RouterGroup, reg *registry.Registry, hub *events.Hub, log *logger.Logger) {
	handler := NewHandler(reg, hub, log)

	sessions := router.Group("/sessions")
	{
		sessions.GET("", handler.ListSessions)
		sessions.GET("/:id", handler.GetSession)
		sessions.GET("/:id/events", handler.StreamEvents)
	}
}
