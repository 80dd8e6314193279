package postgres

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/donation-service/internal/core/datamodel/donation"
	gatewaytypes "github.com/frahmantamala/donation-service/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-service/internal/core/events"
	donationpkg "github.com/frahmantamala/donation-service/internal/donation"
)

const donationsMigration = "../../../db/migrations/00001_create_donations.sql"

// migrationUpStatements returns the goose Up section rewritten for sqlite.
// Constraints are kept as written.
func migrationUpStatements(path string) []string {
	raw, err := os.ReadFile(path)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	up, _, found := strings.Cut(string(raw), "-- +goose Down")
	gomega.Expect(found).To(gomega.BeTrue())

	up = strings.NewReplacer(
		"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"TIMESTAMPTZ", "DATETIME",
		"NOW()", "CURRENT_TIMESTAMP",
	).Replace(up)

	var statements []string
	for _, stmt := range strings.Split(up, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if sql := strings.TrimSpace(strings.Join(lines, "\n")); sql != "" {
			statements = append(statements, sql)
		}
	}
	return statements
}

type acceptingGateway struct{}

func (acceptingGateway) CreateInvoice(context.Context, *gatewaytypes.InvoiceRequest) (*gatewaytypes.InvoiceResponse, error) {
	return &gatewaytypes.InvoiceResponse{PaymentURL: "https://pay.example/inv"}, nil
}

func (acceptingGateway) VerifyCallback(*gatewaytypes.CallbackPayload) bool { return true }

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, events.Event) error { return nil }

var _ = ginkgo.Describe("DonationRepository on the migration schema", func() {
	var (
		db      *gorm.DB
		repo    donationpkg.RepositoryAPI
		service *donationpkg.Service
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		sqlDB, err := db.DB()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		for _, stmt := range migrationUpStatements(donationsMigration) {
			gomega.Expect(db.Exec(stmt).Error).To(gomega.Succeed(), stmt)
		}

		repo = NewDonationRepository(db)
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = donationpkg.NewService(repo, acceptingGateway{}, discardPublisher{}, donationpkg.ServiceConfig{}, lg)
		ctx = context.Background()
	})

	ginkgo.AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	ginkgo.It("should still reject a negative amount", func() {
		err := repo.Create(ctx, &donation.Donation{
			MerchantOrderID: "DON-neg",
			DonorName:       "Budi",
			Amount:          -1,
			Status:          donation.StatusPending,
		})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should store a placeholder for a callback without an amount", func() {
		result, err := service.HandleCallback(ctx, &gatewaytypes.CallbackPayload{
			MerchantOrderID: "DON-1-abc",
			ResultCode:      "00",
			Reference:       "REF1",
		})

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Status).To(gomega.Equal(donation.StatusSuccess))

		stored, err := repo.GetByMerchantOrderID(ctx, "DON-1-abc")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(stored.DonorName).To(gomega.Equal(donationpkg.UnknownDonorName))
		gomega.Expect(stored.Amount).To(gomega.BeZero())
		gomega.Expect(*stored.Reference).To(gomega.Equal("REF1"))
	})

	ginkgo.It("should store a long gateway reference", func() {
		reference := strings.Repeat("R", 300)
		_, err := service.HandleCallback(ctx, &gatewaytypes.CallbackPayload{
			MerchantOrderID: "DON-2-abc",
			Amount:          "25000",
			ResultCode:      "01",
			Reference:       reference,
		})

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		stored, err := repo.GetByMerchantOrderID(ctx, "DON-2-abc")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(*stored.Reference).To(gomega.Equal(reference))
		gomega.Expect(stored.Status).To(gomega.Equal(donation.StatusFailed))
	})
})
