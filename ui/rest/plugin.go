package rest

import (
	domainPlugin "github.com/AzielCF/az-overlay/domains/plugin"
	pkgError "github.com/AzielCF/az-overlay/pkg/error"
	"github.com/AzielCF/az-overlay/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Plugin struct {
	Service domainPlugin.IPluginUsecase
}

func InitRestPlugin(app fiber.Router, service domainPlugin.IPluginUsecase) Plugin {
	handler := Plugin{Service: service}

	group := app.Group("/api/plugins")
	group.Get("/", handler.List)
	group.Post("/scan", handler.Scan)
	group.Post("/install", handler.InstallLocal)
	group.Get("/:pluginId", handler.Get)
	group.Delete("/:pluginId", handler.Uninstall)

	return handler
}

func (handler *Plugin) List(c *fiber.Ctx) error {
	list, err := handler.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Plugins listed",
		Results: list,
	})
}

func (handler *Plugin) Scan(c *fiber.Ctx) error {
	list, err := handler.Service.Scan(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Plugin directory rescanned",
		Results: list,
	})
}

func (handler *Plugin) Get(c *fiber.Ctx) error {
	installed, err := handler.Service.Get(c.UserContext(), c.Params("pluginId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Plugin retrieved",
		Results: installed,
	})
}

func (handler *Plugin) InstallLocal(c *fiber.Ctx) error {
	var body struct {
		Path    string `json:"path"`
		Symlink bool   `json:"symlink"`
	}
	if err := c.BodyParser(&body); err != nil || body.Path == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("path: cannot be blank."))
	}

	installed, err := handler.Service.InstallLocal(c.UserContext(), body.Path, body.Symlink)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Plugin installed",
		Results: installed,
	})
}

func (handler *Plugin) Uninstall(c *fiber.Ctx) error {
	err := handler.Service.Uninstall(c.UserContext(), c.Params("pluginId"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Plugin uninstalled",
	})
}
