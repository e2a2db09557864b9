package api

import (
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"

	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// ControlWebSocketHandler reads JSON commands from text frames, queues them
// and answers each frame with the same acknowledgement the TCP server sends.
func ControlWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, queue *command.Queue) {
	remote := conn.RemoteAddr().String()
	logger.Infof("Control WebSocket connected: %s", remote)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Errorf("Control WS read error: %v", err)
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Debugf("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		reply := command.AckReceived
		cmd, err := command.Parse(msg)
		if err != nil {
			logger.Warnf("Rejected WS command from %s: %v", remote, err)
			reply = command.AckInvalidJSON
		} else {
			queue.Push(cmd)
			logger.Infof("Received command: %s", cmd)
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			logger.Warnf("Control WS write error: %v", err)
			break
		}
	}

	logger.Infof("Control WebSocket disconnected: %s", remote)
}
