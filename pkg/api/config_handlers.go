package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.PresetsConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.PresetsConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the presets configuration endpoints with the Fiber app.
func RegisterConfigRoutes(router fiber.Router, configService services.PresetsConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	group := router.Group("/config")
	group.Get("/presets", h.handleGetPresetsConfig)
	group.Put("/presets", h.handleUpdatePresetsConfig)

	logger.Debugf("Registered presets configuration API endpoints")
}

// handleGetPresetsConfig returns the active presets configuration as YAML.
func (h *ConfigHandler) handleGetPresetsConfig(c *fiber.Ctx) error {
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current presets YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdatePresetsConfig replaces the presets with the YAML request body.
func (h *ConfigHandler) handleUpdatePresetsConfig(c *fiber.Ctx) error {
	switch ct := c.Get(fiber.HeaderContentType); ct {
	case "application/x-yaml", "application/yaml", "text/yaml", "":
	default:
		// Processed anyway; YAML parsing decides
		h.logger.Warnf("Received presets update with Content-Type: %s", ct)
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "Request body cannot be empty.",
		})
	}

	if err := h.configService.UpdateConfig(newConfigYAML); err != nil {
		if errors.Is(err, config.ErrInvalidYAML) || errors.Is(err, config.ErrValidation) {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error: fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		h.logger.Errorf("Failed to update presets configuration: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	cfg := h.configService.GetCurrentConfig()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":   "Presets configuration updated successfully.",
		"config_id": cfg.ConfigID,
		"presets":   cfg.PresetNames(),
	})
}
