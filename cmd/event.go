package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/core/events"
	"github.com/frahmantamala/donation-service/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish test donation events to the configured Kafka topic`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [donation.succeeded|donation.failed]",
	Short:     "Publish a test donation event",
	Long:      `Publish a test donation event through the event bus and, when enabled, to Kafka`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypeDonationSucceeded, events.EventTypeDonationFailed},
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishTestEvent(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var (
	eventOrderID string
	eventAmount  int64
)

func publishTestEvent(eventType string) error {
	if eventType != events.EventTypeDonationSucceeded && eventType != events.EventTypeDonationFailed {
		return fmt.Errorf("unknown event type %q", eventType)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Events.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka config: %w", err)
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	bus.Subscribe(eventType, logDonationEvent(lg))

	if cfg.Events.Kafka.Enabled {
		producer, err := events.NewKafkaProducer(cfg.Events.Kafka.Brokers)
		if err != nil {
			return err
		}
		forwarder := events.NewKafkaForwarder(producer, cfg.Events.Kafka.Topic, lg)
		defer forwarder.Close()
		forwarder.Register(bus)
	}

	status, resultCode := "SUCCESS", "00"
	if eventType == events.EventTypeDonationFailed {
		status, resultCode = "FAILED", "01"
	}

	orderID := eventOrderID
	if orderID == "" {
		orderID = fmt.Sprintf("TEST-%d", time.Now().UnixMilli())
	}

	event := events.NewDonationStatusChangedEvent(eventType, orderID, "TEST-REF", eventAmount, status, resultCode)
	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	ctx, cancel := internal.WithQueryTimeout(context.Background(), 0)
	defer cancel()

	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventOrderID, "order-id", "", "merchant order id (generated when empty)")
	publishEventCmd.Flags().Int64Var(&eventAmount, "amount", 50000, "donation amount")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
