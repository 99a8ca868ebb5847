package processing

import (
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// MessagePublisher defines the interface for publishing messages
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// LoggingResultHandler logs processing results and publishes them to ZMQ
type LoggingResultHandler struct {
	logger    customlog.Logger
	publisher MessagePublisher
}

// NewLoggingResultHandler creates a new logging result handler. A nil
// publisher only logs.
func NewLoggingResultHandler(logger customlog.Logger, publisher MessagePublisher) *LoggingResultHandler {
	return &LoggingResultHandler{
		logger:    logger,
		publisher: publisher,
	}
}

// HandleResult handles a processed report
func (h *LoggingResultHandler) HandleResult(result *ProcessResult) {
	if result.Error != nil {
		h.logger.Errorf("Error processing report %s for topic '%s': %v", result.Report.TriggerID, result.Topic, result.Error)
		return
	}

	h.logger.Debugf("Processed report %s for topic '%s' (%d bytes, triggered %d)",
		result.Report.TriggerID, result.Topic, len(result.Data), result.Timestamp)

	if h.publisher == nil || len(result.Data) == 0 {
		return
	}
	if err := h.publisher.PublishMessage(result.Topic, result.Data); err != nil {
		h.logger.Errorf("Failed to publish report %s on topic '%s': %v", result.Report.TriggerID, result.Topic, err)
		return
	}
	h.logger.Debugf("Published report %s on topic '%s'", result.Report.TriggerID, result.Topic)
}

// CreateHandlerFunc creates a ResultHandler function for the ProcessingPool
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(processResult *ProcessResult) {
		if processResult == nil {
			h.logger.Errorf("Received nil ProcessResult")
			return
		}
		h.HandleResult(processResult)
	}
}
