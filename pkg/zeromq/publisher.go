package zeromq

import (
	"github.com/open-teleop/latencyprobe/pkg/config"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// Publish topics
const (
	TopicTuningUpdate       = "configuration.update"
	TopicTuningNotification = "configuration.notification"
)

// MsgTypeTuningUpdated is the type of tuning change notifications
const MsgTypeTuningUpdated = "TUNING_UPDATED"

// JSONPublisher publishes JSON envelopes
type JSONPublisher interface {
	PublishJSON(topic string, messageType string, data interface{}) error
}

// ConfigPublisher publishes tuning updates to subscribers
type ConfigPublisher struct {
	publisher JSONPublisher
	logger    customlog.Logger
}

// NewConfigPublisher creates a new publisher for tuning updates
func NewConfigPublisher(publisher JSONPublisher, logger customlog.Logger) *ConfigPublisher {
	return &ConfigPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishConfigUpdate publishes the full tuning
func (p *ConfigPublisher) PublishConfigUpdate(t config.Tuning) error {
	p.logger.Infof("Publishing tuning update (ID: %s)", t.TuningID)
	return p.publisher.PublishJSON(TopicTuningUpdate, MsgTypeConfigResponse, t)
}

// PublishConfigUpdatedNotification publishes a notification that the tuning has changed
func (p *ConfigPublisher) PublishConfigUpdatedNotification(t config.Tuning) error {
	p.logger.Infof("Publishing tuning update notification")

	notification := map[string]interface{}{
		"tuning_id":    t.TuningID,
		"version":      t.Version,
		"last_updated": t.LastUpdated,
	}
	return p.publisher.PublishJSON(TopicTuningNotification, MsgTypeTuningUpdated, notification)
}

// RegisterConfigHandlers registers the tuning request handler and returns a
// publisher for tuning changes
func RegisterConfigHandlers(service *ZeroMQService, provider TuningProvider, logger customlog.Logger) *ConfigPublisher {
	service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(provider, logger))

	publisher := NewConfigPublisher(service, logger)
	logger.Debugf("Registered configuration handlers and publisher")
	return publisher
}
