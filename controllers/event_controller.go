package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
)

type EventController struct {
	Events *services.EventService
	Logger *logrus.Entry
}

func NewEventController(events *services.EventService, logger *logrus.Entry) *EventController {
	return &EventController{Events: events, Logger: logger}
}

// GetEvents lists the caller's events, optionally between ?from= and ?to= (YYYY-MM-DD).
func (ec *EventController) GetEvents(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	events, err := ec.Events.List(c.UserContext(), p, services.EventRange{
		From: c.Query("from"),
		To:   c.Query("to"),
	})
	if err != nil {
		return err
	}
	return c.JSON(events)
}

func (ec *EventController) CreateEvent(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var input services.CreateEventInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	event, err := ec.Events.Create(c.UserContext(), p, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

func (ec *EventController) UpdateEvent(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.UpdateEventInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	event, err := ec.Events.Update(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(event)
}

func (ec *EventController) DeleteEvent(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := ec.Events.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
