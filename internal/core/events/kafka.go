package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/frahmantamala/donation-service/pkg/logger"
)

// NewKafkaProducer returns a synchronous producer that waits for all in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return producer, nil
}

// KafkaForwarder relays bus events to a topic, keyed by merchant order id so a
// donation's events stay on one partition.
type KafkaForwarder struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewKafkaForwarder(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaForwarder {
	return &KafkaForwarder{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Register subscribes the forwarder to every donation event type.
func (f *KafkaForwarder) Register(bus *EventBus) {
	bus.Subscribe(EventTypeDonationSucceeded, f.Handle)
	bus.Subscribe(EventTypeDonationFailed, f.Handle)
}

func (f *KafkaForwarder) Handle(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: f.topic,
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType())},
			{Key: []byte("event_id"), Value: []byte(event.EventID())},
		},
	}
	if traceID := logger.TraceID(ctx); traceID != "" {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte("trace_id"), Value: []byte(traceID)})
	}
	if d, ok := event.(*DonationStatusChangedEvent); ok {
		msg.Key = sarama.StringEncoder(d.MerchantOrderID)
	}

	partition, offset, err := f.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	f.logger.Info("donation event forwarded",
		"topic", f.topic,
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"partition", partition,
		"offset", offset)

	return nil
}

func (f *KafkaForwarder) Close() error {
	return f.producer.Close()
}
