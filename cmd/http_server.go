package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/auth"
	authpostgres "github.com/frahmantamala/donation-service/internal/auth/postgres"
	"github.com/frahmantamala/donation-service/internal/core/events"
	"github.com/frahmantamala/donation-service/internal/donation"
	donationpostgres "github.com/frahmantamala/donation-service/internal/donation/postgres"
	"github.com/frahmantamala/donation-service/internal/paymentgateway"
	"github.com/frahmantamala/donation-service/internal/ratelimit"
	"github.com/frahmantamala/donation-service/internal/transport"
	"github.com/frahmantamala/donation-service/internal/transport/rest"
	"github.com/frahmantamala/donation-service/internal/transport/swagger"
	"github.com/frahmantamala/donation-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *sqlx.DB
	Gorm      *gorm.DB
	Redis     *redis.Client
	Router    *chi.Mux
	EventBus  *events.EventBus
	Forwarder *events.KafkaForwarder
	Logger    *slog.Logger
}

func startHTTPServer() {
	ctx := context.Background()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := internal.WithShutdownTimeout(context.Background())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

// close drains in-flight event handlers before releasing the connections they use.
func (d *Dependencies) close() {
	d.EventBus.Wait()
	if d.Forwarder != nil {
		if err := d.Forwarder.Close(); err != nil {
			d.Logger.Error("Kafka producer close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	lg := logger.LoggerWrapper()

	openAPIPath := config.Server.OpenAPIPath
	if _, err := os.Stat(openAPIPath); err != nil {
		lg.Warn("OpenAPI document not found, swagger UI disabled", "path", openAPIPath)
		openAPIPath = ""
	} else if _, err := swagger.LoadSpec(ctx, openAPIPath); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(lg),
		Logger:   lg,
	}

	health := rest.NewHealthHandler(db.DB)

	limiter, err := deps.initLimiter(ctx, health)
	if err != nil {
		deps.close()
		return nil, err
	}

	if err := deps.initEvents(); err != nil {
		deps.close()
		return nil, err
	}

	gatewayCfg := config.Gateway
	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:      gatewayCfg.BaseURL,
		MerchantCode: gatewayCfg.MerchantCode,
		APIKey:       gatewayCfg.APIKey,
		Timeout:      gatewayCfg.Timeout,
	}, lg)

	donationService := donation.NewService(
		donationpostgres.NewDonationRepository(gormDB),
		gateway,
		deps.EventBus,
		donation.ServiceConfig{
			CallbackURL:      gatewayCfg.CallbackURL,
			ReturnURL:        gatewayCfg.ReturnURL,
			ExpiryMinutes:    gatewayCfg.ExpiryMinutes,
			OrderPrefix:      gatewayCfg.OrderPrefix,
			ProductDetails:   gatewayCfg.ProductDetails,
			PlaceholderEmail: gatewayCfg.PlaceholderEmail,
			RequireSignature: gatewayCfg.RequireSignature,
		},
		lg,
	)

	baseHandler := transport.NewBaseHandler(lg)
	handlers := rest.Handlers{
		Donation: donation.NewHandler(baseHandler, donationService),
	}

	if config.Security.AdminAuthEnabled() {
		handlers.Auth = auth.NewHandler(baseHandler, newAuthService(config, gormDB, lg))
	} else {
		lg.Warn("JWT secrets not configured, admin API disabled")
	}

	rest.RegisterAllRoutes(deps.Router, rest.RouterConfig{
		AllowedOrigins: strings.Split(config.Server.AllowedOrigins, ","),
		Health:         health,
		Limiter:        limiter,
		Logger:         lg,
		MetricsEnabled: config.Observability.Metrics.Enabled,
		MetricsPath:    config.Observability.Metrics.Path,
		OpenAPIPath:    openAPIPath,
	}, handlers)

	return deps, nil
}

func newAuthService(config *internal.Config, gormDB *gorm.DB, lg *slog.Logger) *auth.Service {
	sec := config.Security
	tokens := auth.NewJWTTokenGenerator(sec.AccessTokenSecret, sec.RefreshTokenSecret, sec.AccessTokenDuration, sec.RefreshTokenDuration)
	return auth.NewService(authpostgres.NewRepository(gormDB), tokens, sec.BCryptCost, lg)
}

func (d *Dependencies) initLimiter(ctx context.Context, health *rest.HealthHandler) (ratelimit.Limiter, error) {
	rl := d.Config.RateLimit
	if rl.Backend != internal.RateLimitBackendRedis {
		d.Logger.Info("Using in-memory rate limiter", "limit", rl.Limit, "window", rl.Window)
		return ratelimit.NewMemoryLimiter(rl.Limit, rl.Window), nil
	}

	client, err := ratelimit.NewRedisClient(ctx, rl.Redis.Addr, rl.Redis.Password, rl.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	d.Redis = client
	health.WithComponent("redis", redisPinger{client})

	d.Logger.Info("Using redis rate limiter", "addr", rl.Redis.Addr, "limit", rl.Limit, "window", rl.Window)
	return ratelimit.NewRedisLimiter(client, rl.Limit, rl.Window), nil
}

func (d *Dependencies) initEvents() error {
	for _, eventType := range []string{events.EventTypeDonationSucceeded, events.EventTypeDonationFailed} {
		d.EventBus.Subscribe(eventType, logDonationEvent(d.Logger))
	}

	kafkaCfg := d.Config.Events.Kafka
	if !kafkaCfg.Enabled {
		return nil
	}

	producer, err := events.NewKafkaProducer(kafkaCfg.Brokers)
	if err != nil {
		return err
	}
	d.Forwarder = events.NewKafkaForwarder(producer, kafkaCfg.Topic, d.Logger)
	d.Forwarder.Register(d.EventBus)
	d.Logger.Info("Forwarding donation events to Kafka", "brokers", kafkaCfg.Brokers, "topic", kafkaCfg.Topic)
	return nil
}

func logDonationEvent(lg *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		lg.Info("donation event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// initDB opens the pgx-backed pool shared by gorm and the health check.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

