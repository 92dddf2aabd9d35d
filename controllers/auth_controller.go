package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/middleware"
	"taskboard/models"
	"taskboard/services"
)

type AuthController struct {
	Auth   *services.AuthService
	Logger *logrus.Entry
}

func NewAuthController(auth *services.AuthService, logger *logrus.Entry) *AuthController {
	return &AuthController{Auth: auth, Logger: logger}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := ac.Auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := ac.Auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (ac *AuthController) ConfirmEmail(c *fiber.Ctx) error {
	user, err := ac.Auth.ConfirmEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Email confirmed",
		"user_id": user.ID,
	})
}

// GetCurrentUser returns the authenticated user.
func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	user := c.Locals(middleware.LocalUser).(*models.User)
	return c.JSON(user)
}
