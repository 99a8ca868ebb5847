package command

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

// Request is the JSON body of a command injection
type Request struct {
	Command string `json:"command"`
}

// CommandSink accepts raw commands for the next tick
type CommandSink interface {
	Set(raw string)
}

// CommandService injects scene commands over HTTP and reports the target state
type CommandService struct {
	sink   CommandSink
	target *scene.Object
	logger customlog.Logger
}

// NewCommandService creates a new command service instance. A nil sink means
// commands are read from a file and injected commands are refused.
func NewCommandService(sink CommandSink, target *scene.Object, logger customlog.Logger) *CommandService {
	return &CommandService{
		sink:   sink,
		target: target,
		logger: logger.WithCategory(customlog.CategoryAPI),
	}
}

// CommandHandler queues a command. The body is either JSON {"command": "..."}
// or the raw command text. Parsing happens on the next tick, so a malformed
// command is accepted here and rejected in the diagnostics.
func (s *CommandService) CommandHandler(c *fiber.Ctx) error {
	var raw string
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req Request
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		raw = req.Command
	} else {
		raw = string(c.Body())
	}

	if err := s.ValidateCommand(raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if s.sink == nil {
		s.logger.Warnf("Ignoring HTTP command, channel reads from a file: %s", strings.TrimSpace(raw))
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status": "command ignored",
			"error":  "command channel is in file mode",
		})
	}

	s.SendCommand(raw)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "command queued",
		"command": strings.TrimSpace(raw),
	})
}

// ValidateCommand rejects commands the channel would ignore anyway
func (s *CommandService) ValidateCommand(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "command cannot be empty")
	}
	return nil
}

// SendCommand places the command in the channel slot
func (s *CommandService) SendCommand(raw string) {
	s.sink.Set(raw)
	s.logger.Debugf("Queued scene command from HTTP: %s", strings.TrimSpace(raw))
}

// TargetHandler returns the current transform of the display object
func (s *CommandService) TargetHandler(c *fiber.Ctx) error {
	return c.JSON(s.target.Snapshot())
}
