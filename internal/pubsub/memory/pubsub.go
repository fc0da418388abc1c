package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/pubsub"
)

// PubSub keeps notifications inside the process on a watermill gochannel
type PubSub struct {
	channel *gochannel.GoChannel
	logger  *logger.Logger
}

func NewPubSub(logger *logger.Logger) pubsub.PubSub {
	return &PubSub{
		channel: gochannel.NewGoChannel(
			gochannel.Config{
				// messages published before the first subscriber are replayed to it
				Persistent:          true,
				OutputChannelBuffer: 100,
			},
			pubsub.NewWatermillLogger(logger),
		),
		logger: logger,
	}
}

func (p *PubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	p.logger.Debugw("publishing in-memory message",
		"topic", topic,
		"message_id", msg.UUID,
		pubsub.MetadataSubscriptionID, msg.Metadata.Get(pubsub.MetadataSubscriptionID))
	return p.channel.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.channel.Close()
}
