// Package client sends commands from the voice front-end to the controller.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/voice-arm/controller/pkg/command"
)

const (
	// DefaultHost and DefaultPort locate the controller's command server.
	DefaultHost = "localhost"
	DefaultPort = 65432

	replyBufferSize = 1024
	DefaultTimeout  = 5 * time.Second
)

// ErrConnectionRefused means nothing listens on the command port. The dial
// error stays wrapped, so syscall.ECONNREFUSED matches as well.
var ErrConnectionRefused = errors.New("controller refused the connection")

// TCPSender opens one connection per command, writes the JSON payload and
// reads the acknowledgement.
type TCPSender struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewTCPSender creates a sender for host:port.
func NewTCPSender(host string, port int) *TCPSender {
	return &TCPSender{
		addr:    net.JoinHostPort(host, fmt.Sprint(port)),
		timeout: DefaultTimeout,
	}
}

// SetTimeout bounds dialing and the reply wait.
func (s *TCPSender) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Addr returns the target address.
func (s *TCPSender) Addr() string {
	return s.addr
}

// Send delivers cmd and returns the server's reply.
func (s *TCPSender) Send(ctx context.Context, cmd command.Command) (string, error) {
	payload, err := cmd.Marshal()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return "", fmt.Errorf("%w: %w", ErrConnectionRefused, err)
		}
		return "", err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	buf := make([]byte, replyBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(buf[:n]), nil
}
