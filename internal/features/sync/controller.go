package sync

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{
		Service: service,
	}
}

// RunSync godoc
// @Summary      Trigger a sync cycle
// @Description  Runs one fetch-map-upsert cycle immediately
// @Tags         sync
// @Produce      json
// @Success      200  {object}  SyncLog
// @Router       /api/sync/run [post]
func (ctrl *SyncController) RunSync(c *fiber.Ctx) error {
	cycleLog, err := ctrl.Service.RunCycle(c.Context(), "manual")
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
			"data":  cycleLog,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sync cycle completed",
		"data":    cycleLog,
	})
}

// GetStatus godoc
// @Summary      Engine status
// @Description  Current watermark, poll interval and last cycle outcome
// @Tags         sync
// @Produce      json
// @Success      200  {object}  Status
// @Router       /api/sync/status [get]
func (ctrl *SyncController) GetStatus(c *fiber.Ctx) error {
	return c.JSON(ctrl.Service.Status())
}

// ListSyncLogs godoc
// @Summary      Recent cycle run logs
// @Tags         sync
// @Produce      json
// @Success      200  {array}  SyncLog
// @Router       /api/sync/logs [get]
func (ctrl *SyncController) ListSyncLogs(c *fiber.Ctx) error {
	limit := parseLimit(c.Query("limit"), 20)

	logs, err := ctrl.Service.ListLogs(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": logs,
	})
}

// ListFailedOrders godoc
// @Summary      Dead-letter entries
// @Description  Orders that failed processing after the watermark passed them
// @Tags         sync
// @Produce      json
// @Success      200  {array}  FailedOrder
// @Router       /api/sync/failures [get]
func (ctrl *SyncController) ListFailedOrders(c *fiber.Ctx) error {
	limit := parseLimit(c.Query("limit"), 50)

	failures, err := ctrl.Service.ListFailedOrders(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": failures,
	})
}

func parseLimit(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
