package rest

import (
	domainOverlay "github.com/AzielCF/az-overlay/domains/overlay"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/AzielCF/az-overlay/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Overlay struct {
	Service domainOverlay.IOverlayUsecase
}

func InitRestOverlay(app fiber.Router, service domainOverlay.IOverlayUsecase) Overlay {
	handler := Overlay{Service: service}

	app.Get("/api/overlays", handler.List)

	group := app.Group("/api/plugins/:pluginId/overlays/:overlayId")
	group.Post("/load", handler.LoadSettings)
	group.Get("/settings", handler.GetSettings)
	group.Patch("/settings", handler.UpdateSettings)
	group.Post("/flush", handler.Flush)
	group.Get("/exists", handler.Exists)
	group.Delete("/", handler.Close)

	return handler
}

// LoadSettings loads (seeding defaults when needed) and re-applies the
// persisted settings to the live window. Overlay pages call it on startup.
func (handler *Overlay) LoadSettings(c *fiber.Ctx) error {
	settings, err := handler.Service.LoadSettings(c.UserContext(), c.Params("pluginId"), c.Params("overlayId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Overlay settings loaded",
		Results: settings,
	})
}

func (handler *Overlay) GetSettings(c *fiber.Ctx) error {
	settings, err := handler.Service.GetSettings(c.UserContext(), c.Params("pluginId"), c.Params("overlayId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Overlay settings retrieved",
		Results: settings,
	})
}

func (handler *Overlay) UpdateSettings(c *fiber.Ctx) error {
	var patch domainOverlay.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	err := handler.Service.UpdateSettings(c.UserContext(), c.Params("pluginId"), c.Params("overlayId"), patch)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Overlay update buffered",
	})
}

func (handler *Overlay) Flush(c *fiber.Ctx) error {
	handler.Service.FlushNow(c.Params("pluginId"), c.Params("overlayId"))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pending overlay updates flushed",
	})
}

func (handler *Overlay) Exists(c *fiber.Ctx) error {
	exists, err := handler.Service.Exists(c.UserContext(), c.Params("pluginId"), c.Params("overlayId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Overlay existence checked",
		Results: map[string]any{"exists": exists},
	})
}

func (handler *Overlay) Close(c *fiber.Ctx) error {
	err := handler.Service.Close(c.UserContext(), c.Params("pluginId"), c.Params("overlayId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Overlay window closed",
	})
}

func (handler *Overlay) List(c *fiber.Ctx) error {
	windows, err := handler.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Overlay windows listed",
		Results: windows,
	})
}
