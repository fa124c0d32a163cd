// Package server assembles the HTTP surface of the directory.
package server

import (
	"errors"
	"time"

	"employee-directory/internal/audit"
	"employee-directory/internal/auth"
	"employee-directory/internal/config"
	"employee-directory/internal/directory"
	"employee-directory/internal/logger"
	"employee-directory/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

type Deps struct {
	Config    *config.Config
	Logger    logger.Logger
	Store     *auth.Store
	Tokens    *auth.TokenService
	Directory *directory.Service
	Audit     *audit.Service
}

func New(d Deps) *fiber.App {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "employee-directory",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestLogger(log))
	app.Use(metrics.Middleware())

	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: d.Config.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public auth
	api.Post("/register", auth.RegisterHandler(d.Store))
	api.Post("/login", auth.LoginHandler(d.Store, d.Tokens))

	// Protected
	employees := api.Group("/employees", auth.JWTMiddleware(d.Tokens))
	employees.Get("/", directory.ListHandler(d.Directory))
	employees.Post("/", directory.CreateHandler(d.Directory))
	employees.Get("/export", directory.ExportHandler(d.Directory))
	employees.Post("/import", directory.ImportHandler(d.Directory))
	employees.Put("/:id", directory.UpdateHandler(d.Directory))
	employees.Delete("/:id", directory.DeleteHandler(d.Directory))

	api.Get("/audit-logs", auth.JWTMiddleware(d.Tokens), audit.ListHandler(d.Audit))

	return app
}

func errorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"msg": fe.Message})
		}

		log.Error("unexpected error", map[string]interface{}{
			"error":      err.Error(),
			"method":     c.Method(),
			"path":       c.Path(),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"msg": "Internal server error",
		})
	}
}

func requestLogger(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      metrics.StatusOf(c, err),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  c.GetRespHeader(fiber.HeaderXRequestID),
		}
		if uid, ok := auth.UserID(c); ok {
			fields["user_id"] = uid
		}
		log.Info("request", fields)
		return err
	}
}
