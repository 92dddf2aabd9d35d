package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"taskboard/config"
	"taskboard/middleware"
	"taskboard/routes"
	"taskboard/services"
	"taskboard/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	logger := utils.NewLogger(utils.LoggerOptions{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  cfg.IsProduction(),
	})

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	db, err := config.ConnectDB(logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	mailLogger := logger.WithField("component", "mailer")
	var mailer utils.Mailer
	if cfg.SMTP.Host != "" {
		mailer = utils.NewSMTPMailer(cfg.SMTP, cfg.AppBaseURL, cfg.ConfirmTokenTTL, mailLogger)
	} else {
		mailer = utils.NewLogMailer(cfg.AppBaseURL, mailLogger)
	}

	svc := services.New(db, mailer, logger, services.Options{ConfirmTokenTTL: cfg.ConfirmTokenTTL})

	httpLogger := logger.WithField("component", "http")
	app := fiber.New(fiber.Config{
		AppName:      "taskboard",
		ErrorHandler: middleware.ErrorHandler(httpLogger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(httpLogger))
	app.Use(middleware.CORS(cfg.CORSOrigins))

	routes.SetupRoutes(app, db, svc, logger)

	go func() {
		logger.Infof("Server starting on port %s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.WithError(err).Error("Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = app.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Server stopped")
	case <-shutdownCtx.Done():
		logger.WithField("timeout", shutdownTimeout).Warn("Server shutdown timeout")
	}
}
