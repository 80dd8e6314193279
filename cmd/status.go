package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-service/pkg/donationclient"
)

var (
	statusBaseURL  string
	statusWatch    bool
	statusInterval time.Duration
	statusTimeout  time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status [merchant-order-id]",
	Short: "Show the payment status of a donation",
	Long:  `Query the donation status endpoint, optionally polling until the payment settles`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := donationclient.New(statusBaseURL, donationclient.WithPollInterval(statusInterval))
		show := func(s *donationclient.Status) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.MerchantOrderID, s.Status, s.Outcome)
		}

		if !statusWatch {
			status, err := client.GetStatus(ctx, args[0])
			if err != nil {
				return err
			}
			show(status)
			return nil
		}

		if statusTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, statusTimeout)
			defer cancel()
		}

		_, err := client.WaitForStatus(ctx, args[0], show)
		return err
	},
}

func init() {
	defaultURL := os.Getenv("DONATION_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080/api/v1"
	}

	statusCmd.Flags().StringVar(&statusBaseURL, "url", defaultURL, "API base URL")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "poll until the donation succeeds or fails")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", donationclient.DefaultPollInterval, "poll interval with --watch")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 30*time.Minute, "give up watching after this long")

	rootCmd.AddCommand(statusCmd)
}
