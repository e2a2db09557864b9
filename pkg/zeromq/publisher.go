package zeromq

import (
	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/telemetry"
)

// Publish topics
const (
	TopicConfigNotification = "configuration.notification"
	TopicConfigUpdate       = "configuration.update"
)

// Publisher is the part of ZeroMQService used by the publishers
type Publisher interface {
	PublishMessage(topic string, message []byte) error
	PublishJSON(topic string, messageType string, data interface{}) error
}

// ConfigPublisher publishes presets configuration updates to subscribers
type ConfigPublisher struct {
	service Publisher
	logger  customlog.Logger
}

// NewConfigPublisher creates a new publisher for configuration updates
func NewConfigPublisher(service Publisher, logger customlog.Logger) *ConfigPublisher {
	return &ConfigPublisher{
		service: service,
		logger:  logger,
	}
}

// PublishConfigUpdate publishes the full configuration
func (p *ConfigPublisher) PublishConfigUpdate(cfg *config.PresetsConfig) error {
	p.logger.Infof("Publishing configuration update (ID: %s)", cfg.ConfigID)
	return p.service.PublishJSON(TopicConfigUpdate, MsgTypeConfigResponse, cfg)
}

// PublishConfigUpdatedNotification publishes a notification that the config has been updated
func (p *ConfigPublisher) PublishConfigUpdatedNotification(cfg *config.PresetsConfig) error {
	p.logger.Infof("Publishing configuration update notification")

	notification := map[string]interface{}{
		"config_id":    cfg.ConfigID,
		"version":      cfg.Version,
		"last_updated": cfg.LastUpdated,
		"presets":      cfg.PresetNames(),
	}
	return p.service.PublishJSON(TopicConfigNotification, MsgTypeConfigUpdated, notification)
}

// TelemetryPublisher publishes joint-state frames on the telemetry topic
type TelemetryPublisher struct {
	service Publisher
	encoder *telemetry.Encoder
	logger  customlog.Logger
	failed  bool
}

// NewTelemetryPublisher creates a telemetry publisher stamping frames with robotID
func NewTelemetryPublisher(service Publisher, robotID string, logger customlog.Logger) *TelemetryPublisher {
	return &TelemetryPublisher{
		service: service,
		encoder: telemetry.NewEncoder(robotID),
		logger:  logger,
	}
}

// Publish encodes and sends one reading. Only called from the tick loop.
func (p *TelemetryPublisher) Publish(reading arm.Reading, timestampNs int64) {
	frame := p.encoder.Encode(reading, timestampNs)
	if err := p.service.PublishMessage(telemetry.Topic, frame); err != nil {
		// Log the first failure of a run of failures only
		if !p.failed {
			p.logger.Warnf("Failed to publish telemetry: %v", err)
		}
		p.failed = true
		return
	}
	p.failed = false
}

// Register wires the request handlers into the service and returns the config publisher
func Register(service *ZeroMQService, provider ConfigProvider, queue *command.Queue, logger customlog.Logger) *ConfigPublisher {
	service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(provider, logger))
	service.RegisterHandler(MsgTypeCommand, NewCommandHandler(queue, logger))

	logger.Infof("Registered ZeroMQ config and command handlers")
	return NewConfigPublisher(service, logger)
}
