package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"taskboard/config"
	controller "taskboard/controllers"
	"taskboard/middleware"
	"taskboard/models"
	"taskboard/services"
	"taskboard/utils"
)

var staff = middleware.RequireRoles(models.RoleAdmin, models.RoleManager)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, svc *services.Services, log *logrus.Logger) {
	authLogger := log.WithField("component", "auth")
	authController := controller.NewAuthController(svc.Auth, authLogger)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Out,
	}))

	// Public auth endpoints, rate limited per client IP
	limited := middleware.AuthRateLimiter(
		config.AppConfig.RateLimitAuth,
		middleware.RateLimitStorage(config.AppConfig.Redis),
		authLogger,
	)
	auth.Post("/register", limited, authController.Register)
	auth.Post("/login", limited, authController.Login)
	auth.Get("/confirm-email", authController.ConfirmEmail)

	// Protected auth endpoints (require valid JWT)
	auth.Get("/me", middleware.Protected(db), authController.GetCurrentUser)

	authLogger.Info("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, svc *services.Services, log *logrus.Logger) {
	teamController := controller.NewTeamController(svc.Teams, log.WithField("component", "teams"))
	projectController := controller.NewProjectController(svc.Projects, log.WithField("component", "projects"))
	taskController := controller.NewTaskController(svc.Tasks, log.WithField("component", "tasks"))
	tagController := controller.NewTagController(svc.Tags, log.WithField("component", "tags"))
	eventController := controller.NewEventController(svc.Events, log.WithField("component", "events"))
	userController := controller.NewUserController(svc.Users, log.WithField("component", "users"))

	protected := middleware.Protected(db)

	// Team routes
	team := app.Group("/teams", protected)
	team.Get("/", teamController.GetTeams)
	team.Post("/", teamController.CreateTeam)
	team.Get("/:id", teamController.GetTeam)
	team.Put("/:id", teamController.UpdateTeam)
	team.Delete("/:id", teamController.DeleteTeam)
	team.Get("/:id/members", teamController.GetMembers)
	team.Post("/:id/members/:userId", teamController.AddMember)
	team.Delete("/:id/members/:userId", teamController.RemoveMember)

	// Project routes, mutations restricted to managers and admins
	project := app.Group("/projects", protected)
	project.Get("/", projectController.GetProjects)
	project.Post("/", staff, projectController.CreateProject)
	project.Get("/:id", projectController.GetProject)
	project.Put("/:id", staff, projectController.UpdateProject)
	project.Delete("/:id", staff, projectController.DeleteProject)

	// Task routes
	task := app.Group("/tasks", protected)
	task.Get("/", taskController.GetTasks)
	task.Post("/", taskController.CreateTask)
	task.Get("/:id", taskController.GetTask)
	task.Put("/:id", taskController.UpdateTask)
	task.Delete("/:id", taskController.DeleteTask)
	task.Get("/:id/assignee", staff, taskController.GetAssignee)
	task.Post("/:id/assignee", staff, taskController.SetAssignee)
	task.Delete("/:id/assignee", staff, taskController.ClearAssignee)
	task.Post("/:id/tags", taskController.AddTags)
	task.Delete("/:taskId/tags/:tagId", taskController.RemoveTag)

	// Tag routes
	tag := app.Group("/tags", protected)
	tag.Get("/", tagController.GetTags)
	tag.Post("/", tagController.CreateTag)
	tag.Put("/:id", tagController.UpdateTag)
	tag.Delete("/:id", tagController.DeleteTag)

	// Calendar events of the authenticated user
	event := app.Group("/events", protected)
	event.Get("/", eventController.GetEvents)
	event.Post("/", eventController.CreateEvent)
	event.Put("/:id", eventController.UpdateEvent)
	event.Delete("/:id", eventController.DeleteEvent)

	// User routes
	user := app.Group("/users", protected)
	user.Get("/", userController.GetUsers)
	user.Get("/:id", userController.GetUser)
	user.Put("/:id/profile", userController.UpdateProfile)
	user.Post("/:id/avatar", userController.SetAvatar)
	user.Delete("/:id/avatar", userController.ClearAvatar)
	user.Post("/:id/change-password", userController.ChangePassword)
	user.Get("/:id/teams", userController.GetUserTeams)

	log.Info("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, svc *services.Services, log *logrus.Logger) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db, svc, log)
	SetupAPIRoutes(app, db, svc, log)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFound("route %s %s not found", c.Method(), c.Path())
	})
}
