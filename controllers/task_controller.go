package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
	"taskboard/utils"
)

type TaskController struct {
	Tasks  *services.TaskService
	Logger *logrus.Entry
}

func NewTaskController(tasks *services.TaskService, logger *logrus.Entry) *TaskController {
	return &TaskController{Tasks: tasks, Logger: logger}
}

// GetTasks lists visible tasks, filtered by project_id, assignee_id, status and priority.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	projectID, err := utils.ParseOptionalUint(c.Query("project_id"))
	if err != nil {
		return err
	}
	assigneeID, err := utils.ParseOptionalUint(c.Query("assignee_id"))
	if err != nil {
		return err
	}

	tasks, err := tc.Tasks.List(c.UserContext(), p, services.TaskFilter{
		ProjectID:  projectID,
		AssigneeID: assigneeID,
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
	})
	if err != nil {
		return err
	}
	return c.JSON(tasks)
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	task, err := tc.Tasks.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var input services.CreateTaskInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	task, err := tc.Tasks.Create(c.UserContext(), p, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.UpdateTaskInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	task, err := tc.Tasks.Update(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := tc.Tasks.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (tc *TaskController) GetAssignee(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	assignee, err := tc.Tasks.GetAssignee(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"assignee": assignee})
}

func (tc *TaskController) SetAssignee(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var input struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}

	task, err := tc.Tasks.SetAssignee(c.UserContext(), p, id, input.UserID)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (tc *TaskController) ClearAssignee(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	task, err := tc.Tasks.ClearAssignee(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

// AddTags attaches tags to a task. Attaching only tags that are already present is a
// successful no-op.
func (tc *TaskController) AddTags(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var input struct {
		TagIDs []uint `json:"tag_ids"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	res, err := tc.Tasks.AddTags(c.UserContext(), p, id, input.TagIDs)
	if err != nil {
		return err
	}

	message := "Tags added"
	if len(res.Added) == 0 {
		message = "Nothing to do: all tags are already attached"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"added":   len(res.Added),
		"tag_ids": res.Added,
		"task":    res.Task,
	})
}

func (tc *TaskController) RemoveTag(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	taskID, err := paramID(c, "taskId")
	if err != nil {
		return err
	}
	tagID, err := paramID(c, "tagId")
	if err != nil {
		return err
	}
	if err := tc.Tasks.RemoveTag(c.UserContext(), p, taskID, tagID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
