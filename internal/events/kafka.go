package events

import (
	"fmt"

	"workshop/internal/config"
	"workshop/internal/logger"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
)

// NewKafkaFeed shares invoice events between API instances through a Kafka topic.
func NewKafkaFeed(cfg config.Events, log *logger.Logger) (Feed, error) {
	wlog := newLogAdapter(log)

	pubCfg := kafka.DefaultSaramaSyncPublisherConfig()
	pubCfg.ClientID = cfg.ClientID

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: pubCfg,
		},
		wlog,
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	subCfg := kafka.DefaultSaramaSubscriberConfig()
	subCfg.ClientID = cfg.ClientID
	subCfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			ConsumerGroup:         cfg.ConsumerGroup,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: subCfg,
		},
		wlog,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("create kafka subscriber: %w", err)
	}

	return &watermillFeed{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      cfg.Topic,
		logger:     log,
	}, nil
}

// New picks the feed backend from configuration.
func New(cfg config.Events, log *logger.Logger) (Feed, error) {
	if cfg.Backend == config.EventsKafka {
		return NewKafkaFeed(cfg, log)
	}
	return NewMemoryFeed(cfg.Topic, log), nil
}
