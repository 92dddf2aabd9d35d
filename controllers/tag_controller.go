package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
)

type TagController struct {
	Tags   *services.TagService
	Logger *logrus.Entry
}

func NewTagController(tags *services.TagService, logger *logrus.Entry) *TagController {
	return &TagController{Tags: tags, Logger: logger}
}

func (tc *TagController) GetTags(c *fiber.Ctx) error {
	tags, err := tc.Tags.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(tags)
}

func (tc *TagController) CreateTag(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var input services.CreateTagInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	tag, err := tc.Tags.Create(c.UserContext(), p, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

func (tc *TagController) UpdateTag(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.UpdateTagInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	tag, err := tc.Tags.Update(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(tag)
}

func (tc *TagController) DeleteTag(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := tc.Tags.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
