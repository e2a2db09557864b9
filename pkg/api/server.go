package api

import (
	"io"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voice-arm/controller/domain/diagnostic"
	"github.com/voice-arm/controller/domain/teleop"
	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/services"
)

// AppName is reported by the banner route.
const AppName = "Voice Arm Controller"

// Deps are the services the HTTP API exposes.
type Deps struct {
	Logger        customlog.Logger
	Queue         *command.Queue
	ConfigService services.PresetsConfigService
	Teleop        *teleop.TeleopService
	Diagnostic    *diagnostic.DiagnosticService
	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

// NewApp builds the Fiber app with all controller routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               AppName,
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	if deps.AccessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: deps.AccessLog}))
	}
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "voice-arm controller",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/status", deps.Diagnostic.StatusHandler)
	v1.Post("/command", deps.Teleop.CommandHandler)
	RegisterConfigRoutes(v1, deps.ConfigService, deps.Logger)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/control", websocket.New(func(conn *websocket.Conn) {
		ControlWebSocketHandler(conn, deps.Logger, deps.Queue)
	}))

	return app
}

// customErrorHandler renders every error as {"error": "..."}.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(ErrorResponse{
		Error: err.Error(),
	})
}
