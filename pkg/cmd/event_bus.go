package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/calder/automa/pkg/eventbus"
	"github.com/calder/automa/pkg/eventbus/kafka"
)

// NewEventBus creates an event bus. With useKafka the brokers come from
// KAFKA_BROKERS (default kafka:9092); otherwise an in-process gochannel
// bus is used.
func NewEventBus(useKafka bool, consumerGroup string, logger *slog.Logger) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	if useKafka {
		brokers := []string{"kafka:9092"}
		if host := os.Getenv("KAFKA_BROKERS"); host != "" {
			brokers = strings.Split(host, ",")
		}

		pub, sub, err := kafka.NewPubSub(watermillLogger, brokers, consumerGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	return eventbus.NewWatermillEventBus(pubSub, pubSub), nil
}
