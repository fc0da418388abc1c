package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/pubsub"
)

type PubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *logger.Logger
}

// NewPubSub connects a publisher and a consumer group subscriber to the
// configured brokers. Published messages are partitioned by subscription.
func NewPubSub(cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	saramaConfig := newSaramaConfig(cfg.Kafka)
	wmLogger := pubsub.NewWatermillLogger(logger)
	marshaler := kafka.NewWithPartitioningMarshaler(pubsub.PartitionKey)

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Kafka.Brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: saramaConfig,
		},
		wmLogger,
	)
	if err != nil {
		return nil, err
	}

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Kafka.Brokers,
			Unmarshaler:           marshaler,
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         cfg.Kafka.ClientID,
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	logger.Infow("connected to kafka", "brokers", cfg.Kafka.Brokers, "client_id", cfg.Kafka.ClientID)

	return &PubSub{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
	}, nil
}

func (p *PubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	return p.publisher.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.subscriber.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	if err := p.publisher.Close(); err != nil {
		p.logger.Errorw("failed to close kafka publisher", "error", err)
	}
	return p.subscriber.Close()
}
