package teleop

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// TeleopService accepts arm commands over HTTP
type TeleopService struct {
	queue  *command.Queue
	logger customlog.Logger
}

// NewTeleopService creates a new teleop service instance
func NewTeleopService(queue *command.Queue, logger customlog.Logger) *TeleopService {
	return &TeleopService{
		queue:  queue,
		logger: logger,
	}
}

// CommandHandler queues the JSON command in the request body
func (s *TeleopService) CommandHandler(c *fiber.Ctx) error {
	cmd, err := command.Parse(c.Body())
	if err != nil {
		s.logger.Warnf("Rejected HTTP command from %s: %v", c.IP(), err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": command.AckInvalidJSON,
		})
	}

	s.SendCommand(cmd)

	return c.JSON(fiber.Map{
		"status": command.AckReceived,
	})
}

// SendCommand queues a parsed command for the next tick
func (s *TeleopService) SendCommand(cmd command.Command) {
	s.queue.Push(cmd)
	s.logger.Infof("Received command: %s", cmd)
}
