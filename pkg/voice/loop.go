package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// DefaultPause is the delay between voice iterations.
const DefaultPause = 500 * time.Millisecond

// Sender delivers one command to the controller and returns its reply.
type Sender interface {
	Send(ctx context.Context, cmd command.Command) (string, error)
}

// Recognizer captures one utterance and returns its lower-cased text.
// It returns ErrNoSpeech or ErrNotUnderstood when nothing usable was heard.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// Cue is played before each listening window.
type Cue func()

// Controller routes recognized text to the sender.
type Controller struct {
	logger customlog.Logger
	sender Sender
	out    io.Writer
	pause  time.Duration
	cue    Cue
}

// NewController creates a controller writing prompts to out.
func NewController(logger customlog.Logger, sender Sender, out io.Writer) *Controller {
	return &Controller{
		logger: logger,
		sender: sender,
		out:    out,
		pause:  DefaultPause,
	}
}

// SetPause overrides the delay between voice iterations.
func (c *Controller) SetPause(d time.Duration) {
	c.pause = d
}

// SetCue sets the sound played before listening. nil disables it.
func (c *Controller) SetCue(cue Cue) {
	c.cue = cue
}

// Handle matches text and sends the resulting command. It reports whether a
// command was sent. Send failures are logged, never returned.
func (c *Controller) Handle(ctx context.Context, text string) bool {
	cmd, err := Match(text)
	if err != nil {
		c.logger.Infof("Command not recognized in: '%s'", strings.ToLower(strings.TrimSpace(text)))
		c.logger.Debugf("Match error: %v", err)
		return false
	}

	c.logger.Infof("Sending command: %s", cmd)
	reply, err := c.sender.Send(ctx, cmd)
	if errors.Is(err, syscall.ECONNREFUSED) {
		c.logger.Errorf("Connection refused. Is the simulation running?")
		return false
	}
	if err != nil {
		c.logger.Errorf("Error sending command: %v", err)
		return false
	}
	c.logger.Infof("Server response: %s", reply)
	return true
}

// RunDebug reads typed commands from in until "exit", EOF or ctx is done.
// Cancelling ctx returns immediately even while a line is being typed.
func (c *Controller) RunDebug(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, "Debug mode active. Type commands instead of speaking them.")
	fmt.Fprintf(c.out, "Valid commands: %s\n", strings.Join(Vocabulary, ", "))
	fmt.Fprintln(c.out, "Type 'exit' to quit.")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	// The reader goroutine stays blocked in Scan after a cancel until the
	// next line or EOF arrives; done keeps it from blocking on the send.
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(c.out, "Enter command: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case err := <-scanErr:
			return err
		case line = <-lines:
		}

		text := strings.ToLower(strings.TrimSpace(line))
		if text == "exit" {
			return nil
		}
		if text == "" {
			continue
		}
		c.Handle(ctx, text)
	}
}

// RunVoice listens, recognizes and sends until ctx is done. Recognition
// failures are logged and the loop continues.
func (c *Controller) RunVoice(ctx context.Context, rec Recognizer) error {
	fmt.Fprintf(c.out, "Voice recognition active. Say one of: %s\n", strings.Join(Vocabulary, ", "))
	fmt.Fprintln(c.out, "Press Ctrl+C to exit.")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if c.cue != nil {
			c.cue()
		}
		text, err := rec.Recognize(ctx)
		switch {
		case err == nil:
			c.logger.Infof("Recognized: %s", text)
			c.Handle(ctx, text)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrNoSpeech), errors.Is(err, ErrNotUnderstood):
			c.logger.Infof("%s", capitalize(err.Error()))
		default:
			c.logger.Errorf("Error in speech recognition: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.pause):
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
