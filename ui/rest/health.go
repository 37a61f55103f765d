package rest

import (
	"runtime"
	"time"

	"github.com/AzielCF/az-overlay/core/config"
	"github.com/AzielCF/az-overlay/pkg/store"
	"github.com/AzielCF/az-overlay/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Registry  *store.Registry
	StartedAt time.Time
}

func InitRestHealth(app fiber.Router, registry *store.Registry) Health {
	handler := Health{Registry: registry, StartedAt: time.Now()}

	app.Get("/api/health", handler.GetStatus)

	return handler
}

func (handler *Health) GetStatus(c *fiber.Ctx) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	results := map[string]any{
		"version":     config.Global.App.Version,
		"environment": config.Global.App.Environment,
		"settings":    config.GetAllSettings(),
		"started":     humanize.Time(handler.StartedAt),
		"uptime_sec":  int64(time.Since(handler.StartedAt).Seconds()),
		"goroutines":  runtime.NumGoroutine(),
		"heap_in_use": humanize.Bytes(mem.HeapInuse),
		"storage": map[string]any{
			"open_documents": handler.Registry.OpenHandles(),
			"disk_usage":     humanize.Bytes(uint64(handler.Registry.DiskUsage())),
		},
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Service healthy",
		Results: results,
	})
}
