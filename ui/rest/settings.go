package rest

import (
	"github.com/AzielCF/az-overlay/domains/schema"
	domainSettings "github.com/AzielCF/az-overlay/domains/settings"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/AzielCF/az-overlay/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Settings struct {
	Service domainSettings.ISettingsUsecase
}

func InitRestSettings(app fiber.Router, service domainSettings.ISettingsUsecase) Settings {
	handler := Settings{Service: service}

	group := app.Group("/api/plugins/:pluginId/settings")
	group.Get("/", handler.GetAll)
	group.Put("/", handler.SetAll)
	group.Delete("/", handler.Clear)
	group.Post("/reset", handler.ResetDefaults)
	group.Post("/flush", handler.Flush)
	group.Get("/:key", handler.Get)
	group.Put("/:key", handler.Update)
	group.Delete("/:key", handler.Delete)

	return handler
}

func (handler *Settings) GetAll(c *fiber.Ctx) error {
	values, err := handler.Service.Load(c.UserContext(), c.Params("pluginId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings retrieved",
		Results: values,
	})
}

func (handler *Settings) Get(c *fiber.Ctx) error {
	value, err := handler.Service.Get(c.UserContext(), c.Params("pluginId"), c.Params("key"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Setting retrieved",
		Results: map[string]any{"value": value},
	})
}

func (handler *Settings) Update(c *fiber.Ctx) error {
	var body struct {
		Value any `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	err := handler.Service.Update(c.UserContext(), c.Params("pluginId"), c.Params("key"), body.Value)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Setting update buffered",
	})
}

func (handler *Settings) SetAll(c *fiber.Ctx) error {
	var values schema.Values
	if err := c.BodyParser(&values); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	err := handler.Service.SetAll(c.UserContext(), c.Params("pluginId"), values)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings saved",
	})
}

func (handler *Settings) Delete(c *fiber.Ctx) error {
	existed, err := handler.Service.Delete(c.UserContext(), c.Params("pluginId"), c.Params("key"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Setting deleted",
		Results: map[string]any{"existed": existed},
	})
}

func (handler *Settings) Clear(c *fiber.Ctx) error {
	err := handler.Service.Clear(c.UserContext(), c.Params("pluginId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings cleared",
	})
}

func (handler *Settings) ResetDefaults(c *fiber.Ctx) error {
	err := handler.Service.ResetDefaults(c.UserContext(), c.Params("pluginId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings reset to defaults",
	})
}

func (handler *Settings) Flush(c *fiber.Ctx) error {
	handler.Service.FlushNow(c.Params("pluginId"))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pending settings flushed",
	})
}
