package zeromq

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/telemetry"
)

type staticProvider struct {
	cfg *config.PresetsConfig
}

func (p staticProvider) GetCurrentConfig() *config.PresetsConfig { return p.cfg }

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) PublishMessage(topic string, message []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, message)
	return nil
}

func (p *recordingPublisher) PublishJSON(topic string, messageType string, data interface{}) error {
	payload, err := json.Marshal(newMessage(messageType, data))
	if err != nil {
		return err
	}
	return p.PublishMessage(topic, payload)
}

func newTestDispatcher() (*MessageDispatcher, *command.Queue) {
	logger := customlog.NewNopLogger()
	queue := command.NewQueue()
	d := NewMessageDispatcher(logger)
	d.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(staticProvider{config.DefaultPresetsConfig()}, logger))
	d.RegisterHandler(MsgTypeCommand, NewCommandHandler(queue, logger))
	return d, queue
}

func decodeReply(t *testing.T, data []byte) rawMessage {
	t.Helper()
	var msg rawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Reply is not JSON: %v", err)
	}
	return msg
}

func TestDispatchConfigRequest(t *testing.T) {
	d, _ := newTestDispatcher()

	reply, err := d.Dispatch([]byte(`{"type": "CONFIG_REQUEST", "timestamp": 1}`))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	msg := decodeReply(t, reply)
	if msg.Type != MsgTypeConfigResponse {
		t.Fatalf("Expected %s, got %s", MsgTypeConfigResponse, msg.Type)
	}

	var cfg config.PresetsConfig
	if err := json.Unmarshal(msg.Data, &cfg); err != nil {
		t.Fatalf("Config payload not decodable: %v", err)
	}
	if cfg.ConfigID != "builtin-presets" || len(cfg.Presets) != 7 {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

func TestDispatchCommand(t *testing.T) {
	d, queue := newTestDispatcher()

	reply, err := d.Dispatch([]byte(`{"type": "COMMAND", "data": {"action": "Custom", "motor3": 0.4}}`))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if msg := decodeReply(t, reply); msg.Type != MsgTypeAck {
		t.Errorf("Expected ACK, got %s", msg.Type)
	}

	cmd, ok := queue.Pop()
	if !ok || cmd.NormalizedAction() != "custom" || cmd.Motor3 == nil || *cmd.Motor3 != 0.4 {
		t.Errorf("Unexpected queued command %+v", cmd)
	}
}

func TestDispatchErrors(t *testing.T) {
	d, queue := newTestDispatcher()

	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", `hello`, ErrInvalidMessage},
		{"missing type", `{"data": {}}`, ErrInvalidMessage},
		{"unknown type", `{"type": "DANCE"}`, ErrUnknownMessageType},
		{"bad command", `{"type": "COMMAND", "data": "home"}`, ErrInvalidMessage},
		{"missing command", `{"type": "COMMAND"}`, ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch([]byte(tt.payload))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if errorCode(err) != 400 {
				t.Errorf("Expected code 400, got %d", errorCode(err))
			}
		})
	}
	if queue.Len() != 0 {
		t.Errorf("Expected no queued commands, got %d", queue.Len())
	}
}

func TestConfigPublisherNotification(t *testing.T) {
	pub := &recordingPublisher{}
	cp := NewConfigPublisher(pub, customlog.NewNopLogger())

	if err := cp.PublishConfigUpdatedNotification(config.DefaultPresetsConfig()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != TopicConfigNotification {
		t.Fatalf("Unexpected topics %v", pub.topics)
	}
	msg := decodeReply(t, pub.payloads[0])
	if msg.Type != MsgTypeConfigUpdated {
		t.Errorf("Expected %s, got %s", MsgTypeConfigUpdated, msg.Type)
	}
}

func TestConfigPublisherFullUpdate(t *testing.T) {
	pub := &recordingPublisher{}
	cp := NewConfigPublisher(pub, customlog.NewNopLogger())

	if err := cp.PublishConfigUpdate(config.DefaultPresetsConfig()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != TopicConfigUpdate {
		t.Fatalf("Unexpected topics %v", pub.topics)
	}

	msg := decodeReply(t, pub.payloads[0])
	if msg.Type != MsgTypeConfigResponse {
		t.Errorf("Expected %s, got %s", MsgTypeConfigResponse, msg.Type)
	}
	var cfg config.PresetsConfig
	if err := json.Unmarshal(msg.Data, &cfg); err != nil {
		t.Fatalf("Config payload not decodable: %v", err)
	}
	if cfg.ConfigID != "builtin-presets" || len(cfg.Presets) != 7 {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

func TestTelemetryPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	tp := NewTelemetryPublisher(pub, "arm", customlog.NewNopLogger())

	reading := arm.Reading{Motor1: 0.5, Gripper: 0.25}
	tp.Publish(reading, 42)

	if len(pub.topics) != 1 || pub.topics[0] != telemetry.Topic {
		t.Fatalf("Unexpected topics %v", pub.topics)
	}
	frame, err := telemetry.Decode(pub.payloads[0])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if frame.Reading != reading || frame.TimestampNs != 42 {
		t.Errorf("Unexpected frame %+v", frame)
	}

	pub.err = ErrServiceClosed
	tp.Publish(reading, 43)
	if !tp.failed {
		t.Error("Expected failure to be remembered")
	}
}
