package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// NewKafkaConsumerGroup joins groupID starting from the oldest retained offset.
func NewKafkaConsumerGroup(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}
	return group, nil
}

// DecodeDonationEvent rebuilds an event written by KafkaForwarder.
func DecodeDonationEvent(msg *sarama.ConsumerMessage) (*DonationStatusChangedEvent, error) {
	var event DonationStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event at %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	if event.Type == "" {
		for _, h := range msg.Headers {
			if string(h.Key) == "event_type" {
				event.Type = string(h.Value)
			}
		}
	}
	if event.Type == "" || event.MerchantOrderID == "" {
		return nil, fmt.Errorf("event at %s/%d/%d is missing type or merchant_order_id", msg.Topic, msg.Partition, msg.Offset)
	}
	return &event, nil
}

// KafkaConsumer replays donation events from a topic onto a local bus. It
// implements sarama.ConsumerGroupHandler.
type KafkaConsumer struct {
	bus    *EventBus
	logger *slog.Logger
}

func NewKafkaConsumer(bus *EventBus, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{bus: bus, logger: logger}
}

func (c *KafkaConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

func (c *KafkaConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks undecodable messages as consumed so one bad record cannot
// stall the partition. A handler failure ends the claim with the offset
// unmarked, so the session closes and the event is redelivered after Run
// rejoins the group.
func (c *KafkaConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			event, err := DecodeDonationEvent(msg)
			if err != nil {
				c.logger.Warn("skipping malformed donation event", "error", err)
				session.MarkMessage(msg, "")
				continue
			}

			if err := c.bus.PublishSync(session.Context(), event); err != nil {
				c.logger.Error("donation event handler failed",
					"event_id", event.EventID(),
					"merchant_order_id", event.MerchantOrderID,
					"error", err)
				return fmt.Errorf("handle %s at %s/%d offset %d: %w",
					event.EventType(), msg.Topic, msg.Partition, msg.Offset, err)
			}
			session.MarkMessage(msg, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// Run consumes topics until ctx is cancelled, rejoining after each rebalance.
func (c *KafkaConsumer) Run(ctx context.Context, group sarama.ConsumerGroup, topics []string) error {
	go func() {
		for err := range group.Errors() {
			c.logger.Error("kafka consumer error", "error", err)
		}
	}()

	for {
		if err := group.Consume(ctx, topics, c); err != nil {
			if stderrors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume %v: %w", topics, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
