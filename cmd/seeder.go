package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/pkg/logger"
)

var (
	seedAdminEmail    string
	seedAdminName     string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create or update the dashboard admin account",
	Long:  `Create the admin account used by the donation dashboard. Re-running resets its password.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.Database.Validate(); err != nil {
			log.Fatalf("database config: %v", err)
		}

		password := seedAdminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}
		if password == "" {
			log.Fatal("admin password is required: pass --password or set ADMIN_PASSWORD")
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		ctx, cancel := internal.WithQueryTimeout(context.Background(), cfg.Database.QueryTimeout)
		defer cancel()

		svc := newAuthService(cfg, gormDB, logger.LoggerWrapper())
		admin, err := svc.EnsureAdmin(ctx, seedAdminEmail, seedAdminName, password)
		if err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}

		fmt.Println("Seeded admin user:", admin.Email)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "email", "admin@example.org", "admin email")
	seedCmd.Flags().StringVar(&seedAdminName, "name", "Donation Admin", "admin display name")
	seedCmd.Flags().StringVar(&seedAdminPassword, "password", "", "admin password (defaults to $ADMIN_PASSWORD)")
}
