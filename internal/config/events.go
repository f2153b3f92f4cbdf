package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/prepdeck/cbe-service/internal/events"
)

// EventConfig holds configuration for the key change bus that keeps
// concurrent sessions on the same paper in sync.
type EventConfig struct {
	Bus           string
	Topic         string
	KafkaBrokers  string
	ConsumerGroup string
}

func LoadEventConfig() *EventConfig {
	return &EventConfig{
		Bus:           getEnv("EVENT_BUS", "gochannel"),
		Topic:         getEnv("EVENT_TOPIC", "cbe.key-changes"),
		KafkaBrokers:  getEnv("KAFKA_BROKERS", "localhost:9092"),
		ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "cbe-service"),
	}
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// CreateBus creates a key change bus based on configuration. The in-process
// gochannel bus is the default; Kafka lets several service instances share
// one set of sessions.
func (c *EventConfig) CreateBus(logger *slog.Logger) (events.Bus, error) {
	switch c.Bus {
	case "kafka":
		logger.Info("Creating Kafka key change bus",
			"brokers", c.KafkaBrokers,
			"topic", c.Topic)

		return events.NewKafkaBus(events.KafkaConfig{
			Brokers:       c.GetKafkaBrokers(),
			Topic:         c.Topic,
			ConsumerGroup: consumerGroupSuffix(c.ConsumerGroup),
			Logger:        logger,
		})
	case "mock":
		logger.Info("Using mock key change bus")
		return events.NewMockBus(logger), nil
	case "gochannel":
		return events.NewGoChannelBus(c.Topic, logger), nil
	default:
		logger.Warn("Unknown event bus type, falling back to gochannel", "bus", c.Bus)
		return events.NewGoChannelBus(c.Topic, logger), nil
	}
}

// consumerGroupSuffix gives every instance its own Kafka consumer group so
// each one sees the full change stream instead of sharing a partition.
func consumerGroupSuffix(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return base
	}
	return base + "-" + host
}
