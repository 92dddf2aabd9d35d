package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
)

type TeamController struct {
	Teams  *services.TeamService
	Logger *logrus.Entry
}

func NewTeamController(teams *services.TeamService, logger *logrus.Entry) *TeamController {
	return &TeamController{Teams: teams, Logger: logger}
}

func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	teams, err := tc.Teams.List(c.UserContext(), p)
	if err != nil {
		return err
	}
	return c.JSON(teams)
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	team, err := tc.Teams.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(team)
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var input services.CreateTeamInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	team, err := tc.Teams.Create(c.UserContext(), p, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.UpdateTeamInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	team, err := tc.Teams.Update(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(team)
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := tc.Teams.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (tc *TeamController) GetMembers(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	members, err := tc.Teams.Members(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(members)
}

func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	teamID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	member, err := tc.Teams.AddMember(c.UserContext(), p, teamID, userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	teamID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	if err := tc.Teams.RemoveMember(c.UserContext(), p, teamID, userID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
