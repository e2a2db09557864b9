package processing

import (
	"encoding/json"

	customlog "github.com/voice-arm/controller/pkg/log"
)

// ResultTopic is the publish topic for applied command results
const ResultTopic = "arm.result"

// MessagePublisher defines the interface for publishing messages
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// LoggingResultHandler logs dispatch results and publishes them when a publisher is set
type LoggingResultHandler struct {
	logger    customlog.Logger
	publisher MessagePublisher
}

// NewLoggingResultHandler creates a new logging result handler. publisher may be nil.
func NewLoggingResultHandler(logger customlog.Logger, publisher MessagePublisher) *LoggingResultHandler {
	return &LoggingResultHandler{
		logger:    logger,
		publisher: publisher,
	}
}

// HandleResult handles an applied command result
func (h *LoggingResultHandler) HandleResult(result *Result) {
	h.logger.Debugf("Applied command %s: action='%s' kind=%s in %dµs",
		result.ID, result.Action, result.Kind, result.DurationMicros)

	if h.publisher == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Errorf("Failed to serialize result %s: %v", result.ID, err)
		return
	}
	if err := h.publisher.PublishMessage(ResultTopic, data); err != nil {
		h.logger.Errorf("Failed to publish result for action '%s': %v", result.Action, err)
		return
	}
	h.logger.Debugf("Published result %s on '%s'", result.ID, ResultTopic)
}

// CreateHandlerFunc creates a ResultHandler function for the Dispatcher
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(result *Result) {
		if result == nil {
			h.logger.Errorf("Received nil Result")
			return
		}
		h.HandleResult(result)
	}
}
