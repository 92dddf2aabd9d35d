package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
	"taskboard/utils"
)

type ProjectController struct {
	Projects *services.ProjectService
	Logger   *logrus.Entry
}

func NewProjectController(projects *services.ProjectService, logger *logrus.Entry) *ProjectController {
	return &ProjectController{Projects: projects, Logger: logger}
}

// GetProjects lists visible projects, filtered by created_by, team_id and status.
func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	createdBy, err := utils.ParseOptionalUint(c.Query("created_by"))
	if err != nil {
		return err
	}
	teamID, err := utils.ParseOptionalUint(c.Query("team_id"))
	if err != nil {
		return err
	}

	projects, err := pc.Projects.List(c.UserContext(), p, services.ProjectFilter{
		CreatedBy: createdBy,
		TeamID:    teamID,
		Status:    c.Query("status"),
	})
	if err != nil {
		return err
	}
	return c.JSON(projects)
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	project, err := pc.Projects.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(project)
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var input services.CreateProjectInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	project, err := pc.Projects.Create(c.UserContext(), p, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.UpdateProjectInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	project, err := pc.Projects.Update(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(project)
}

func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := pc.Projects.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
