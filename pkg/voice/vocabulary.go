// Package voice turns recognized utterances into arm commands and drives the
// debug (typed) and voice input loops.
package voice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/voice-arm/controller/pkg/command"
)

// Recognition errors. Both are logged and the loop moves on.
var (
	ErrNoSpeech      = errors.New("no speech detected within timeout")
	ErrNotUnderstood = errors.New("could not understand audio")
)

// ErrUnrecognized is returned by Match when no command is found in the text.
var ErrUnrecognized = errors.New("command not recognized")

// Vocabulary lists the spoken commands in match priority order.
var Vocabulary = []string{
	"home", "up", "down", "left", "right", "open", "close", "stop", "position",
}

// Match finds the command in an utterance. The text is lower-cased and the
// first vocabulary entry that occurs anywhere in it wins, so "stop going up"
// yields "up". Text starting with the word "custom" is parsed as
// "custom motor1=0.5 gripper=0.2".
func Match(text string) (command.Command, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return command.Command{}, ErrUnrecognized
	}

	fields := strings.Fields(text)
	if fields[0] == command.ActionCustom {
		return parseCustom(fields[1:])
	}

	for _, word := range Vocabulary {
		if strings.Contains(text, word) {
			return command.Action(word), nil
		}
	}
	return command.Command{}, fmt.Errorf("%w in: '%s'", ErrUnrecognized, text)
}

// parseCustom reads name=value pairs. Any malformed pair rejects the whole text.
func parseCustom(pairs []string) (command.Command, error) {
	cmd := command.Action(command.ActionCustom)
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return command.Command{}, fmt.Errorf("%w: custom expects name=value, got '%s'", ErrUnrecognized, pair)
		}
		v, err := command.ParseSetpoint(raw)
		if err != nil {
			return command.Command{}, fmt.Errorf("%w: bad value for %s: '%s'", ErrUnrecognized, name, raw)
		}

		switch name {
		case "motor1":
			cmd.Motor1 = command.Float(v)
		case "motor2":
			cmd.Motor2 = command.Float(v)
		case "motor3":
			cmd.Motor3 = command.Float(v)
		case "gripper":
			cmd.Gripper = command.Float(v)
		default:
			return command.Command{}, fmt.Errorf("%w: unknown joint '%s'", ErrUnrecognized, name)
		}
	}
	if !cmd.HasSetpoints() {
		return command.Command{}, fmt.Errorf("%w: custom needs at least one name=value", ErrUnrecognized)
	}
	return cmd, nil
}
