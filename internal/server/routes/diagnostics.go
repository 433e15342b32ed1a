package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/dataset-cache/internal/cache"
	"github.com/any-hub/dataset-cache/internal/version"
)

// RegisterDiagnosticsRoutes 暴露 /-/healthz 与 /-/datasets 诊断接口，便于查看本地缓存状态。
func RegisterDiagnosticsRoutes(app *fiber.App, store cache.Store) {
	if app == nil || store == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Full(),
		})
	})

	app.Get("/-/datasets", func(c fiber.Ctx) error {
		entries, err := store.List(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_list_failed"})
		}
		if entries == nil {
			entries = []cache.Entry{}
		}
		return c.JSON(fiber.Map{
			"datasets": entries,
			"count":    len(entries),
		})
	})
}
