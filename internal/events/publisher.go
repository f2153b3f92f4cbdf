package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Publisher publishes key-change events to the notification bus.
type Publisher interface {
	PublishKeyChange(ctx context.Context, event *KeyChangeEvent) error
	Close() error
}

// Subscriber delivers key-change events published by any session, this
// process or another. Consumers filter by key themselves.
type Subscriber interface {
	SubscribeKeyChanges(ctx context.Context) (<-chan KeyChangeEvent, error)
	Close() error
}

// Bus is both ends of the notification channel.
type Bus interface {
	Publisher
	Subscriber
}

func marshalEvent(event *KeyChangeEvent) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key change event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("key", event.Key)
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	return msg, nil
}

func decodeLoop(msgs <-chan *message.Message, out chan<- KeyChangeEvent, logger *slog.Logger) {
	defer close(out)
	for msg := range msgs {
		var event KeyChangeEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			logger.Warn("Dropping undecodable key change event",
				"message_id", msg.UUID,
				"error", err)
			msg.Ack()
			continue
		}
		out <- event
		msg.Ack()
	}
}

// ===== IN-PROCESS BUS (DEFAULT) =====

// GoChannelBus is a Watermill gochannel pub/sub: every subscriber sees every
// event, which is exactly the browser storage-event model this replaces.
type GoChannelBus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
	topic  string
}

func NewGoChannelBus(topic string, logger *slog.Logger) *GoChannelBus {
	return &GoChannelBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger)),
		logger: logger,
		topic:  topic,
	}
}

func (b *GoChannelBus) PublishKeyChange(ctx context.Context, event *KeyChangeEvent) error {
	msg, err := marshalEvent(event)
	if err != nil {
		return err
	}
	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish key change: %w", err)
	}
	return nil
}

func (b *GoChannelBus) SubscribeKeyChanges(ctx context.Context) (<-chan KeyChangeEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to key changes: %w", err)
	}
	out := make(chan KeyChangeEvent)
	go decodeLoop(msgs, out, b.logger)
	return out, nil
}

func (b *GoChannelBus) Close() error {
	return b.pubsub.Close()
}

// ===== KAFKA BUS =====

// KafkaBus carries key-change events through Kafka so sessions opened against
// different service instances still converge on the same attempt state and
// deadline.
type KafkaBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
	topic      string
}

// KafkaConfig holds configuration for the Kafka-backed bus.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Logger        *slog.Logger
}

func NewKafkaBus(config KafkaConfig) (*KafkaBus, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       config.Brokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: config.ConsumerGroup,
	}, logger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return &KafkaBus{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     config.Logger,
		topic:      config.Topic,
	}, nil
}

func (b *KafkaBus) PublishKeyChange(ctx context.Context, event *KeyChangeEvent) error {
	msg, err := marshalEvent(event)
	if err != nil {
		return err
	}
	if err := b.publisher.Publish(b.topic, msg); err != nil {
		b.logger.Error("Failed to publish key change event",
			"event_id", event.ID,
			"key", event.Key,
			"error", err)
		return fmt.Errorf("failed to publish key change: %w", err)
	}
	return nil
}

func (b *KafkaBus) SubscribeKeyChanges(ctx context.Context) (<-chan KeyChangeEvent, error) {
	msgs, err := b.subscriber.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to key changes: %w", err)
	}
	out := make(chan KeyChangeEvent)
	go decodeLoop(msgs, out, b.logger)
	return out, nil
}

func (b *KafkaBus) Close() error {
	pubErr := b.publisher.Close()
	subErr := b.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

// ===== MOCK BUS (TESTS) =====

// MockBus records published events and fans them out to subscribers
// synchronously. Used by tests in place of the gochannel/Kafka buses.
type MockBus struct {
	mu     sync.Mutex
	events []KeyChangeEvent
	subs   []chan KeyChangeEvent
	logger *slog.Logger
}

func NewMockBus(logger *slog.Logger) *MockBus {
	return &MockBus{logger: logger}
}

func (m *MockBus) PublishKeyChange(ctx context.Context, event *KeyChangeEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	subs := make([]chan KeyChangeEvent, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, sub := range subs {
		sub <- *event
	}
	return nil
}

func (m *MockBus) SubscribeKeyChanges(ctx context.Context) (<-chan KeyChangeEvent, error) {
	ch := make(chan KeyChangeEvent, 64)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, nil
}

func (m *MockBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		close(sub)
	}
	m.subs = nil
	return nil
}

// PublishedEvents returns all events seen so far (for tests).
func (m *MockBus) PublishedEvents() []KeyChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]KeyChangeEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents drops recorded events (for tests).
func (m *MockBus) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
