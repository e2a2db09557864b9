package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// ControlPath is the controller's WebSocket command endpoint.
const ControlPath = "/ws/control"

// WSSender keeps one WebSocket open to the controller's HTTP surface and
// redials once when a send fails on a stale connection.
type WSSender struct {
	url     string
	timeout time.Duration
	logger  customlog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSender creates a sender for ws://host:port/ws/control. It connects
// lazily on the first Send.
func NewWSSender(host string, port int, logger customlog.Logger) *WSSender {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, fmt.Sprint(port)), Path: ControlPath}
	return &WSSender{
		url:     u.String(),
		timeout: DefaultTimeout,
		logger:  logger,
	}
}

// URL returns the endpoint this sender dials.
func (s *WSSender) URL() string {
	return s.url
}

// SetTimeout bounds dialing and the reply wait.
func (s *WSSender) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Send writes cmd as a text frame and returns the acknowledgement frame.
func (s *WSSender) Send(ctx context.Context, cmd command.Command) (string, error) {
	payload, err := cmd.Marshal()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reused := s.conn != nil
	reply, err := s.roundTrip(ctx, payload)
	if err != nil && reused && ctx.Err() == nil {
		s.logger.Warnf("WebSocket send failed, reconnecting: %v", err)
		reply, err = s.roundTrip(ctx, payload)
	}
	return reply, err
}

func (s *WSSender) roundTrip(ctx context.Context, payload []byte) (string, error) {
	if s.conn == nil {
		if err := s.dial(ctx); err != nil {
			return "", err
		}
	}

	deadline := time.Now().Add(s.timeout)
	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.reset()
		return "", fmt.Errorf("write command: %w", err)
	}

	_ = s.conn.SetReadDeadline(deadline)
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		s.reset()
		return "", fmt.Errorf("read reply: %w", err)
	}
	return string(msg), nil
}

func (s *WSSender) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.timeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	s.logger.Infof("Connected to %s", s.url)
	s.conn = conn
	return nil
}

func (s *WSSender) reset() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Close sends a close frame and drops the connection.
func (s *WSSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := s.conn.Close()
	s.conn = nil
	return err
}
