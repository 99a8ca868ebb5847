package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/latencyprobe/pkg/config"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	tuningService services.TuningService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(tuningService services.TuningService, logger customlog.Logger) *ConfigHandler {
	if tuningService == nil {
		panic("TuningService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		tuningService: tuningService,
		logger:        logger.WithCategory(customlog.CategoryAPI),
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, tuningService services.TuningService, logger customlog.Logger) {
	h := NewConfigHandler(tuningService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/tuning", h.handleGetTuning)
	apiGroup.Put("/tuning", h.handleUpdateTuning)

	h.logger.Infof("Registered tuning configuration API endpoints under /api/v1/config")
}

// handleGetTuning returns the current tuning as YAML, or JSON when asked for it.
func (h *ConfigHandler) handleGetTuning(c *fiber.Ctx) error {
	if c.Accepts("application/x-yaml", fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
		return c.JSON(h.tuningService.GetTuning())
	}

	yamlData, err := h.tuningService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to encode current tuning: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve tuning: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateTuning replaces the tuning with the YAML request body.
func (h *ConfigHandler) handleUpdateTuning(c *fiber.Ctx) error {
	switch c.Get(fiber.HeaderContentType) {
	case "application/x-yaml", "application/yaml", "text/yaml":
	default:
		h.logger.Warnf("Received PUT request with unexpected Content-Type: %s", c.Get(fiber.HeaderContentType))
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	if err := h.tuningService.UpdateConfig(body); err != nil {
		if errors.Is(err, config.ErrInvalidTuning) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Tuning update failed: %v", err),
			})
		}
		h.logger.Errorf("Failed to update tuning: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during tuning update: %v", err),
		})
	}

	t := h.tuningService.GetTuning()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":   "Tuning updated.",
		"tuning_id": t.TuningID,
	})
}
