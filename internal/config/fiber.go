package config

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"nuyolo/internal/view"
	"nuyolo/pkg/handlerUtil"
)

func NewFiber(logger *logrus.Logger, env *Env) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           env.AppName,
			BodyLimit:         env.MaxUploadMB * 1024 * 1024,
			DisableKeepalive:  false,
			CaseSensitive:     true,
			EnablePrintRoutes: env.AppEnv == "development",
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			Views:             view.New(),
			ViewsLayout:       view.Layout,
			ErrorHandler:      newErrorHandler(logger),
		})

	return app
}

// newErrorHandler reports errors that escaped the handlers, mostly unknown
// routes and oversized bodies.
func newErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		logger.WithFields(logrus.Fields{
			"path":  c.Path(),
			"code":  code,
			"error": err.Error(),
		}).Warn("Unhandled request error")

		c.Status(code)
		if handlerUtil.WantsHTML(c) {
			return c.Render("error", fiber.Map{
				"Title":   fmt.Sprintf("Error %d", code),
				"Status":  code,
				"Message": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"error": err.Error()})
	}
}
