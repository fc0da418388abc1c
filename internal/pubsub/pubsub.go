// Package pubsub carries customer notifications to whatever delivers them.
// The memory backend serves local runs and tests, kafka serves deployments.
package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata keys set on every notification message
const (
	MetadataEventType      = "event_type"
	MetadataSubscriptionID = "subscription_id"
	MetadataRequestID      = "request_id"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

type PubSub interface {
	Publisher
	Subscriber
}

// PartitionKey orders messages of one subscription on the same partition.
// Messages without a subscription fall back to their own id.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	if key := msg.Metadata.Get(MetadataSubscriptionID); key != "" {
		return key, nil
	}
	return msg.UUID, nil
}
