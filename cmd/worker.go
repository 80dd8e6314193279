package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-service/internal/core/events"
	"github.com/frahmantamala/donation-service/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that consume donation events.`,
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume donation events from Kafka",
	Long:  `Join a Kafka consumer group on the donation topic and replay each event onto a local event bus`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startEventWorker(); err != nil {
			fmt.Fprintf(os.Stderr, "event worker: %v\n", err)
			os.Exit(1)
		}
	},
}

var consumerGroup string

func startEventWorker() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	kafkaCfg := cfg.Events.Kafka
	if !kafkaCfg.Enabled {
		return fmt.Errorf("kafka is disabled; set events.kafka.enabled")
	}
	if err := kafkaCfg.Validate(); err != nil {
		return err
	}

	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	for _, eventType := range []string{events.EventTypeDonationSucceeded, events.EventTypeDonationFailed} {
		bus.Subscribe(eventType, logDonationEvent(lg))
	}

	group, err := events.NewKafkaConsumerGroup(kafkaCfg.Brokers, consumerGroup)
	if err != nil {
		return err
	}
	defer group.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("Event worker started", "topic", kafkaCfg.Topic, "group", consumerGroup)
	if err := events.NewKafkaConsumer(bus, lg).Run(ctx, group, []string{kafkaCfg.Topic}); err != nil {
		return err
	}

	lg.Info("Event worker stopped")
	return nil
}

func init() {
	eventWorkerCmd.Flags().StringVar(&consumerGroup, "group", "donation-service-events", "Kafka consumer group id")

	workerCmd.AddCommand(eventWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
