package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/services"
)

type UserController struct {
	Users  *services.UserService
	Logger *logrus.Entry
}

func NewUserController(users *services.UserService, logger *logrus.Entry) *UserController {
	return &UserController{Users: users, Logger: logger}
}

func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	users, err := uc.Users.List(c.UserContext(), p, c.Query("role"))
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := uc.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.UpdateProfileInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	user, err := uc.Users.UpdateProfile(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (uc *UserController) SetAvatar(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.AvatarInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	user, err := uc.Users.SetAvatar(c.UserContext(), p, id, input)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (uc *UserController) ClearAvatar(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := uc.Users.ClearAvatar(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (uc *UserController) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var input services.ChangePasswordInput
	if err := parseBody(c, &input); err != nil {
		return err
	}
	if err := uc.Users.ChangePassword(c.UserContext(), p, id, input); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

func (uc *UserController) GetUserTeams(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	teams, err := uc.Users.Teams(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(teams)
}
