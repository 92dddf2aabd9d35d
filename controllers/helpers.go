package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"taskboard/middleware"
	"taskboard/models"
	"taskboard/utils"
)

func principal(c *fiber.Ctx) (models.Principal, error) {
	return middleware.CurrentPrincipal(c)
}

// paramID parses a positive numeric path parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, utils.InvalidRequest("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return utils.InvalidRequest("invalid request body")
	}
	return nil
}
