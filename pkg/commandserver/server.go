// Package commandserver accepts one-shot JSON commands over plain TCP and
// hands them to the tick loop through the pending-command queue.
package commandserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// ErrServiceClosed is returned when starting a server that has been stopped
var ErrServiceClosed = errors.New("command server is closed")

// readTimeout bounds how long a silent client can hold the serial accept loop.
const readTimeout = 5 * time.Second

// Server is the TCP command listener
type Server struct {
	cfg     config.CommandServerConfig
	queue   *command.Queue
	logger  customlog.Logger
	backoff time.Duration

	listener net.Listener
	running  atomic.Bool
	closed   bool
	mu       sync.Mutex
	wg       sync.WaitGroup

	received atomic.Int64
	rejected atomic.Int64
}

// New creates a server that pushes parsed commands onto queue
func New(cfg config.CommandServerConfig, queue *command.Queue, logger customlog.Logger) *Server {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = config.DefaultBufferSize
	}
	if cfg.ErrorBackoffMs <= 0 {
		cfg.ErrorBackoffMs = config.DefaultErrorBackoffMs
	}
	return &Server{
		cfg:     cfg,
		queue:   queue,
		logger:  logger.WithField("component", "command_server"),
		backoff: cfg.ErrorBackoff(),
	}
}

// Start binds the listener and begins accepting connections
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	if s.running.Load() {
		return nil
	}

	addr := s.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Infof("Server listening on %s", ln.Addr())
	return nil
}

// Stop closes the listener and waits for the accept loop to exit
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running.Load() {
		s.closed = true
		s.mu.Unlock()
		return
	}
	s.running.Store(false)
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	s.logger.Infof("Stopping command server")
	ln.Close()
	s.wg.Wait()
	s.logger.Infof("Command server stopped (received=%d, rejected=%d)", s.received.Load(), s.rejected.Load())
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats returns the number of accepted and rejected commands
func (s *Server) Stats() (received, rejected int64) {
	return s.received.Load(), s.rejected.Load()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.logger.Errorf("Server error: %v", err)
			time.Sleep(s.backoff)
			continue
		}

		if err := s.handleConn(conn); err != nil {
			if !s.running.Load() {
				return
			}
			s.logger.Errorf("Server error: %v", err)
			time.Sleep(s.backoff)
		}
	}
}

// handleConn serves exactly one request on conn and closes it.
func (s *Server) handleConn(conn net.Conn) error {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debugf("Connected by %s", remote)

	buf := make([]byte, s.cfg.BufferSize)
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return fmt.Errorf("set read deadline for %s: %w", remote, err)
	}
	n, err := conn.Read(buf)
	if n == 0 {
		// Client connected and closed without sending anything.
		if err != nil && !isEOF(err) {
			return fmt.Errorf("read from %s: %w", remote, err)
		}
		return nil
	}

	cmd, perr := command.Parse(buf[:n])
	reply := command.AckReceived
	if perr != nil {
		s.rejected.Add(1)
		s.logger.Warnf("Rejected command from %s: %v", remote, perr)
		reply = command.AckInvalidJSON
	} else {
		s.received.Add(1)
		s.queue.Push(cmd)
		s.logger.Infof("Received command: %s", cmd)
	}

	if _, err := conn.Write([]byte(reply)); err != nil {
		return fmt.Errorf("reply to %s: %w", remote, err)
	}
	return nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
