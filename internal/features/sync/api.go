package sync

import (
	"go-ordersync/internal/common/api"
	"go-ordersync/internal/config"
	"go-ordersync/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
}

func NewSyncApi(controller *SyncController, config *config.Config) api.Route {
	return &SyncApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all sync routes
func (h *SyncApi) Setup(app *fiber.App) {
	syncGroup := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	syncGroup.Post("/run", h.controller.RunSync)
	syncGroup.Get("/status", h.controller.GetStatus)
	syncGroup.Get("/logs", h.controller.ListSyncLogs)
	syncGroup.Get("/failures", h.controller.ListFailedOrders)
}
