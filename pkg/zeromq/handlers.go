package zeromq

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/open-teleop/latencyprobe/pkg/config"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

func decodeRequest(data []byte, expected string) (*incomingMessage, error) {
	var msg incomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type != expected {
		return nil, fmt.Errorf("unexpected message type: %s", msg.Type)
	}
	return &msg, nil
}

// CommandSink accepts raw scene commands for the next tick.
type CommandSink interface {
	Set(raw string)
}

// SceneCommandData is the data of a SCENE_COMMAND request
type SceneCommandData struct {
	Command string `json:"command"`
}

// SceneCommandHandler handles SCENE_COMMAND messages by placing the command
// in the network channel slot. Parsing happens on the next tick.
type SceneCommandHandler struct {
	sink   CommandSink
	logger customlog.Logger
}

// NewSceneCommandHandler creates a new handler for scene commands. With a
// nil sink every command is refused with ErrCommandsDisabled.
func NewSceneCommandHandler(sink CommandSink, logger customlog.Logger) *SceneCommandHandler {
	return &SceneCommandHandler{
		sink:   sink,
		logger: logger,
	}
}

// HandleMessage stores the command and acknowledges it
func (h *SceneCommandHandler) HandleMessage(data []byte) ([]byte, error) {
	msg, err := decodeRequest(data, MsgTypeSceneCommand)
	if err != nil {
		return nil, err
	}

	var cmd SceneCommandData
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: scene command data: %v", ErrInvalidMessage, err)
	}
	if strings.TrimSpace(cmd.Command) == "" {
		return nil, fmt.Errorf("%w: empty scene command", ErrInvalidMessage)
	}
	if h.sink == nil {
		h.logger.Warnf("Ignoring ZeroMQ command, channel reads from a file: %s", cmd.Command)
		return nil, ErrCommandsDisabled
	}

	h.sink.Set(cmd.Command)
	h.logger.Debugf("Queued scene command from ZeroMQ: %s", cmd.Command)

	return encodeMessage(MsgTypeAck, map[string]interface{}{
		"status":  "OK",
		"command": cmd.Command,
	})
}

// TuningProvider exposes the active runtime tuning
type TuningProvider interface {
	GetTuning() config.Tuning
}

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	provider TuningProvider
	logger   customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(provider TuningProvider, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{
		provider: provider,
		logger:   logger,
	}
}

// HandleMessage processes a CONFIG_REQUEST message and returns a CONFIG_RESPONSE
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	if _, err := decodeRequest(data, MsgTypeConfigRequest); err != nil {
		return nil, err
	}

	h.logger.Debugf("Processing configuration request")

	responseData, err := encodeMessage(MsgTypeConfigResponse, h.provider.GetTuning())
	if err != nil {
		h.logger.Errorf("Error serializing response: %v", err)
		return nil, err
	}
	return responseData, nil
}

// StatusProvider reports probe status for STATUS_REQUEST
type StatusProvider interface {
	Status() interface{}
}

// StatusFunc adapts a function to StatusProvider
type StatusFunc func() interface{}

// Status calls f()
func (f StatusFunc) Status() interface{} {
	return f()
}

// StatusHandler handles STATUS_REQUEST messages
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new handler for status requests
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// HandleMessage returns a STATUS_RESPONSE
func (h *StatusHandler) HandleMessage(data []byte) ([]byte, error) {
	if _, err := decodeRequest(data, MsgTypeStatusRequest); err != nil {
		return nil, err
	}
	return encodeMessage(MsgTypeStatusResponse, h.provider.Status())
}
