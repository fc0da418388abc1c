package notification

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/pubsub"
	"github.com/flexprice/planshift/internal/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is the message published for every customer notification
type Event struct {
	ID             string         `json:"id"`
	EventType      string         `json:"event_type"`
	SubscriptionID string         `json:"subscription_id"`
	Payload        map[string]any `json:"payload"`
	Timestamp      time.Time      `json:"timestamp"`
}

// publisher implements interfaces.NotificationSender on top of a pubsub topic.
// Delivery to the customer is done by whatever consumes the topic.
type publisher struct {
	pubSub pubsub.Publisher
	config *config.NotificationConfig
	logger *logger.Logger
}

// NewPublisher returns a pubsub backed sender, or a sender that only logs
// when notifications are disabled
func NewPublisher(pubSub pubsub.Publisher, cfg *config.Configuration, logger *logger.Logger) interfaces.NotificationSender {
	if !cfg.Notification.Enabled || pubSub == nil {
		return &noopSender{logger: logger}
	}
	return &publisher{
		pubSub: pubSub,
		config: &cfg.Notification,
		logger: logger,
	}
}

func (p *publisher) Notify(ctx context.Context, subscriptionID, eventType string, payload map[string]any) error {
	event := &Event{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		EventType:      eventType,
		SubscriptionID: subscriptionID,
		Payload:        payload,
		Timestamp:      time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.ID, data)
	msg.Metadata.Set(pubsub.MetadataEventType, eventType)
	msg.Metadata.Set(pubsub.MetadataSubscriptionID, subscriptionID)
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set(pubsub.MetadataRequestID, requestID)
	}

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish notification",
			"error", err,
			"notification_id", event.ID,
			"event_type", eventType,
			"subscription_id", subscriptionID,
		)
		return err
	}

	p.logger.Debugw("published notification",
		"notification_id", event.ID,
		"event_type", eventType,
		"subscription_id", subscriptionID,
		"topic", p.config.Topic,
	)
	return nil
}

type noopSender struct {
	logger *logger.Logger
}

func (n *noopSender) Notify(_ context.Context, subscriptionID, eventType string, _ map[string]any) error {
	n.logger.Debugw("notifications disabled, dropping notification",
		"event_type", eventType,
		"subscription_id", subscriptionID,
	)
	return nil
}
