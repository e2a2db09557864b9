package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Acknowledgement strings written back to command senders.
const (
	AckReceived    = "Command received"
	AckInvalidJSON = "Error: Invalid JSON data"
)

// Built-in actions that are not presets.
const (
	ActionCustom   = "custom"
	ActionStop     = "stop"
	ActionPosition = "position"
)

// ErrInvalidJSON is returned for payloads that are not a usable JSON command object.
var ErrInvalidJSON = errors.New("invalid JSON data")

// Command is a single arm instruction. Nil setpoints mean the field was absent.
type Command struct {
	Action  string   `json:"action,omitempty"`
	Motor1  *float64 `json:"motor1,omitempty"`
	Motor2  *float64 `json:"motor2,omitempty"`
	Motor3  *float64 `json:"motor3,omitempty"`
	Gripper *float64 `json:"gripper,omitempty"`
}

// Parse decodes a wire payload into a Command.
// The payload must be a JSON object; action must be a string when present and
// setpoints must be numbers or numeric strings. null is treated as absent.
func Parse(data []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if fields == nil {
		return Command{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidJSON)
	}

	var cmd Command
	if raw, ok := fields["action"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &cmd.Action); err != nil {
			return Command{}, fmt.Errorf("%w: action must be a string", ErrInvalidJSON)
		}
	}

	targets := []struct {
		key string
		dst **float64
	}{
		{"motor1", &cmd.Motor1},
		{"motor2", &cmd.Motor2},
		{"motor3", &cmd.Motor3},
		{"gripper", &cmd.Gripper},
	}
	for _, t := range targets {
		raw, ok := fields[t.key]
		if !ok || isNull(raw) {
			continue
		}
		v, err := parseSetpoint(raw)
		if err != nil {
			return Command{}, fmt.Errorf("%w: %s: %v", ErrInvalidJSON, t.key, err)
		}
		*t.dst = &v
	}

	return cmd, nil
}

// Marshal encodes the command for the wire. The output never contains a newline.
func (c Command) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// NormalizedAction returns the lower-cased action used for dispatch.
func (c Command) NormalizedAction() string {
	return strings.ToLower(c.Action)
}

// HasSetpoints reports whether any numeric field is present.
func (c Command) HasSetpoints() bool {
	return c.Motor1 != nil || c.Motor2 != nil || c.Motor3 != nil || c.Gripper != nil
}

func (c Command) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{action: %q", c.Action)
	for _, f := range []struct {
		name string
		v    *float64
	}{{"motor1", c.Motor1}, {"motor2", c.Motor2}, {"motor3", c.Motor3}, {"gripper", c.Gripper}} {
		if f.v != nil {
			fmt.Fprintf(&b, ", %s: %g", f.name, *f.v)
		}
	}
	b.WriteString("}")
	return b.String()
}

// Action builds a bare action command.
func Action(name string) Command {
	return Command{Action: name}
}

// Float returns a pointer to v, handy for building custom commands.
func Float(v float64) *float64 {
	return &v
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func parseSetpoint(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected a number")
	}
	return ParseSetpoint(s)
}

// ParseSetpoint reads a joint target written as text. NaN and infinities are
// rejected because a motor cannot be driven to them.
func ParseSetpoint(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("expected a numeric string, got %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("setpoint must be finite, got %q", s)
	}
	return v, nil
}
