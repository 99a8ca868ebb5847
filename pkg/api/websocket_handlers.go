package api

import (
	"encoding/json"
	"errors"
	"strings"
	"syscall"

	"github.com/gofiber/contrib/websocket"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// CommandSink accepts raw scene commands for the next tick.
type CommandSink interface {
	Set(raw string)
}

// CommandWebSocketHandler reads scene commands from a websocket. Text frames
// are either JSON {"command": "..."} or the raw command text. Each frame is
// acknowledged once it is queued. A nil sink refuses every command.
func CommandWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, sink CommandSink) {
	logger = logger.WithCategory(customlog.CategoryAPI)
	logger.Infof("Command WebSocket connected: %s", conn.RemoteAddr())

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("Command WS read error: %v", err)
			} else if !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Infof("Command WS connection closed: %v", err)
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Command WS message type: %d", mt)
			continue
		}

		ack := queueCommandFrame(msg, sink, logger)
		if err := conn.WriteJSON(ack); err != nil {
			logger.Warnf("Failed to acknowledge WS command: %v", err)
			break
		}
	}
	logger.Infof("Command WebSocket disconnected: %s", conn.RemoteAddr())
}

// queueCommandFrame decodes one frame, hands it to sink and returns the ack.
func queueCommandFrame(msg []byte, sink CommandSink, logger customlog.Logger) AckMsg {
	raw, err := decodeCommandFrame(msg)
	if err != nil {
		logger.Warnf("Invalid command frame from WS: %v. Message: %s", err, string(msg))
		return AckMsg{Status: "error", Error: err.Error()}
	}
	if sink == nil {
		logger.Warnf("Ignoring WS command, channel reads from a file: %s", raw)
		return AckMsg{Status: "ignored", Command: raw, Error: "command channel is in file mode"}
	}
	sink.Set(raw)
	logger.Debugf("Queued scene command from WS: %s", raw)
	return AckMsg{Status: "queued", Command: raw}
}

func decodeCommandFrame(msg []byte) (string, error) {
	text := strings.TrimSpace(string(msg))
	if strings.HasPrefix(text, "{") {
		var cmd CommandMsg
		if err := json.Unmarshal(msg, &cmd); err != nil {
			return "", err
		}
		text = strings.TrimSpace(cmd.Command)
	}
	if text == "" {
		return "", errors.New("empty command")
	}
	return text, nil
}
