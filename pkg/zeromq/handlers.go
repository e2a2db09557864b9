package zeromq

import (
	"encoding/json"
	"fmt"

	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// ConfigProvider supplies the presets configuration currently in effect
type ConfigProvider interface {
	GetCurrentConfig() *config.PresetsConfig
}

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	provider ConfigProvider
	logger   customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(provider ConfigProvider, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{
		provider: provider,
		logger:   logger,
	}
}

// HandleMessage processes a CONFIG_REQUEST message and returns a CONFIG_RESPONSE
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg rawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type != MsgTypeConfigRequest {
		return nil, fmt.Errorf("%w: unexpected type %s", ErrInvalidMessage, msg.Type)
	}

	h.logger.Debugf("Processing configuration request")

	responseData, err := json.Marshal(newMessage(MsgTypeConfigResponse, h.provider.GetCurrentConfig()))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	h.logger.Debugf("Sending configuration response (%d bytes)", len(responseData))
	return responseData, nil
}

// CommandHandler handles COMMAND messages by queueing the embedded arm command
type CommandHandler struct {
	queue  *command.Queue
	logger customlog.Logger
}

// NewCommandHandler creates a new handler that pushes commands onto queue
func NewCommandHandler(queue *command.Queue, logger customlog.Logger) *CommandHandler {
	return &CommandHandler{
		queue:  queue,
		logger: logger,
	}
}

// HandleMessage processes a COMMAND message and returns an ACK
func (h *CommandHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg rawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type != MsgTypeCommand {
		return nil, fmt.Errorf("%w: unexpected type %s", ErrInvalidMessage, msg.Type)
	}

	cmd, err := command.Parse(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessage, command.AckInvalidJSON)
	}

	h.queue.Push(cmd)
	h.logger.Infof("Received command: %s", cmd)

	return json.Marshal(newMessage(MsgTypeAck, map[string]interface{}{
		"status": command.AckReceived,
		"action": cmd.NormalizedAction(),
	}))
}
