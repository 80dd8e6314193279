package internal_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/donation-service/internal"
)

var _ = Describe("Config", func() {
	validConfig := func() *internal.Config {
		cfg := &internal.Config{
			Server: internal.ServerConfig{
				AllowedOrigins:    "*",
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
			},
			Database: internal.DatabaseConfig{Source: "postgres://localhost/donations"},
			Gateway: internal.GatewayConfig{
				MerchantCode: "D0001",
				APIKey:       "secret",
				CallbackURL:  "https://donate.example.org/api/v1/payments/callback",
				ReturnURL:    "https://donate.example.org/thanks",
			},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	Describe("LoadConfigFromEnv", func() {
		It("should read gateway and rate limit settings from the environment", func() {
			t := GinkgoT()
			t.Setenv("DATABASE_URL", "postgres://db/donations")
			t.Setenv("DUITKU_MERCHANT_CODE", "D1234")
			t.Setenv("DUITKU_API_KEY", "key")
			t.Setenv("DUITKU_REQUIRE_SIGNATURE", "true")
			t.Setenv("RATE_LIMIT_MAX", "25")
			t.Setenv("RATE_LIMIT_WINDOW", "30s")
			t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

			cfg := internal.LoadConfigFromEnv()

			Expect(cfg.Database.Source).To(Equal("postgres://db/donations"))
			Expect(cfg.Gateway.MerchantCode).To(Equal("D1234"))
			Expect(cfg.Gateway.RequireSignature).To(BeTrue())
			Expect(cfg.Gateway.ExpiryMinutes).To(Equal(1440))
			Expect(cfg.RateLimit.Limit).To(Equal(25))
			Expect(cfg.RateLimit.Window).To(Equal(30 * time.Second))
			Expect(cfg.Events.Kafka.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))
		})

		It("should ignore unparseable values", func() {
			GinkgoT().Setenv("RATE_LIMIT_MAX", "lots")
			Expect(internal.LoadConfigFromEnv().RateLimit.Limit).To(Equal(10))
		})
	})

	Describe("ApplyDefaults", func() {
		It("should fill zero values", func() {
			cfg := &internal.Config{}
			cfg.ApplyDefaults()

			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Gateway.BaseURL).To(Equal(internal.DefaultGatewayBaseURL))
			Expect(cfg.Gateway.OrderPrefix).To(Equal("DON"))
			Expect(cfg.RateLimit.Backend).To(Equal(internal.RateLimitBackendMemory))
			Expect(cfg.RateLimit.Window).To(Equal(time.Minute))
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
		})
	})

	Describe("Validate", func() {
		It("should accept a complete config", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		It("should list missing gateway credentials", func() {
			cfg := validConfig()
			cfg.Gateway.MerchantCode = ""
			cfg.Gateway.APIKey = ""

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("missing merchant_code, api_key")))
		})

		It("should require absolute callback urls", func() {
			cfg := validConfig()
			cfg.Gateway.CallbackURL = "/payments/callback"

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("callback_url must be an absolute URL")))
		})

		It("should require a redis address for the redis backend", func() {
			cfg := validConfig()
			cfg.RateLimit.Backend = internal.RateLimitBackendRedis

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("redis.addr is required")))
		})

		It("should reject unknown rate limit backends", func() {
			cfg := validConfig()
			cfg.RateLimit.Backend = "memcached"

			Expect(cfg.Validate()).To(MatchError(ContainSubstring(`unknown backend "memcached"`)))
		})

		It("should only check kafka when enabled", func() {
			cfg := validConfig()
			Expect(cfg.Validate()).To(Succeed())

			cfg.Events.Kafka.Enabled = true
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("brokers are required")))
		})

		It("should join every failing section", func() {
			cfg := validConfig()
			cfg.Database.Source = ""
			cfg.RateLimit.Limit = -1

			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("database config: source is required")))
			Expect(err).To(MatchError(ContainSubstring("rate limit config: limit must be positive")))
		})
	})

	Describe("SecurityConfig", func() {
		It("should enable admin auth only with both secrets", func() {
			sec := internal.SecurityConfig{AccessTokenSecret: "a"}
			Expect(sec.AdminAuthEnabled()).To(BeFalse())
			sec.RefreshTokenSecret = "b"
			Expect(sec.AdminAuthEnabled()).To(BeTrue())
		})
	})
})

var _ = Describe("timeouts", func() {
	It("should default non-positive query timeouts", func() {
		ctx, cancel := internal.WithQueryTimeout(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("~", internal.DefaultQueryTimeout, time.Second))
	})

	It("should outlive a cancelled parent during shutdown", func() {
		parent, cancelParent := context.WithCancel(context.Background())
		cancelParent()

		ctx, cancel := internal.WithShutdownTimeout(parent)
		defer cancel()

		Expect(ctx.Err()).NotTo(HaveOccurred())
		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("~", internal.ShutdownTimeout, time.Second))
	})
})
