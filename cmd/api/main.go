package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/jolly-booking-intake/internal/aws"
	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/catalog"
	"github.com/imrishuroy/jolly-booking-intake/internal/config"
	"github.com/imrishuroy/jolly-booking-intake/internal/handlers"
	"github.com/imrishuroy/jolly-booking-intake/internal/idempotency"
	"github.com/imrishuroy/jolly-booking-intake/internal/intake"
	"github.com/imrishuroy/jolly-booking-intake/internal/logging"
	"github.com/imrishuroy/jolly-booking-intake/internal/metrics"
	"github.com/imrishuroy/jolly-booking-intake/internal/middleware"
	"github.com/imrishuroy/jolly-booking-intake/internal/notify"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

func setupRouter(cfg *config.Config, hcfg handlers.HandlerConfig, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.RegisterHealth(r)
	handlers.RegisterBookingRoutes(r, hcfg)

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(string(cfg.Env), cfg.LogLevel)
	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("failed to load packages: %v", err)
	}

	var clients *aws.AWSClients
	if cfg.StoreBackend == config.StoreDynamoDB || cfg.NotifyTransport == config.TransportSQS || cfg.MetricsEnabled {
		clients, err = aws.NewAWSClients(ctx)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
	}

	var recorder metrics.Recorder = metrics.Nop{}
	var cw *metrics.CloudWatch
	if cfg.MetricsEnabled {
		cw = metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace, logger)
		recorder = cw
	}

	var store bookings.Store
	switch cfg.StoreBackend {
	case config.StoreDynamoDB:
		claims := idempotency.NewStore(clients.DynamoDB, cfg.FingerprintsTable)
		store = bookings.NewDynamoStore(clients.DynamoDB, cfg.BookingsTable, claims)
	default:
		logger.Warn("using in-memory booking store; bookings are lost on restart")
		store = bookings.NewMemoryStore(nil)
	}

	channel, closeChannel, err := newChannel(cfg, clients, logger)
	if err != nil {
		log.Fatalf("failed to init notify channel: %v", err)
	}
	defer closeChannel()

	backoff := notify.Backoff{
		Attempts:   cfg.NotifyAttempts,
		Initial:    cfg.NotifyBackoff,
		Max:        cfg.NotifyMaxDelay,
		Multiplier: 2,
	}
	notifier := notify.NewRetryNotifier(channel, backoff, cfg.NotifyTimeout, cfg.OwnerContact, logger)
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyWorkers, cfg.NotifyQueueSize, logger, recorder)
	dispatcher.Start(context.WithoutCancel(ctx))

	svc := intake.NewService(
		validation.New(cat, cfg.Location()),
		store,
		dispatcher,
		logger,
		intake.WithMetrics(recorder),
		intake.WithStoreTimeout(cfg.StoreTimeout),
	)

	r := setupRouter(cfg, handlers.HandlerConfig{
		Service:        svc,
		Catalog:        cat,
		Logger:         logger,
		RateLimit:      newRateLimit(cfg, logger, recorder),
		OperatorSecret: cfg.OperatorJWTSecret,
	}, logger)

	// if RUN_LOCAL is set, serve HTTP directly for development.
	if cfg.RunLocal {
		if cw != nil {
			go cw.Run(ctx, cfg.MetricsInterval)
		}
		runLocal(ctx, r, cfg.HTTPAddr, logger)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			logger.Warn("notify_drain_incomplete", "error", err)
		}
		return
	}

	// lambda adapter; alerts and metrics are settled inside each invocation
	adapter := ginadapter.New(r)
	var flush flusher
	if cw != nil {
		flush = cw
	}

	lambda.Start(lambdaHandler(adapter.ProxyWithContext, dispatcher, flush, cfg.NotifyDrain, logger))
}

func runLocal(ctx context.Context, h http.Handler, addr string, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("running local server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to run local server: %v", err)
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	file, err := cfg.ReadPackagesFile()
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.PackagesJSON, file)
}

func newChannel(cfg *config.Config, clients *aws.AWSClients, logger *slog.Logger) (notify.Channel, func(), error) {
	switch cfg.NotifyTransport {
	case config.TransportSQS:
		return notify.NewSQSChannel(aws.NewPublisher(clients.SQS, cfg.NotifyQueueURL)), func() {}, nil
	case config.TransportAMQP:
		ch, err := notify.DialAMQP(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			return nil, nil, err
		}
		return ch, func() { _ = ch.Close() }, nil
	default:
		return notify.NewLogChannel(logger), func() {}, nil
	}
}

func newRateLimit(cfg *config.Config, logger *slog.Logger, rec metrics.Recorder) gin.HandlerFunc {
	var scripter redis.Scripter
	if cfg.RedisAddr != "" {
		scripter = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:        cfg.RateLimitEnabled,
		Capacity:       cfg.RateLimitCapacity,
		RefillTokens:   1,
		RefillInterval: cfg.RateLimitRefillEach,
		Prefix:         "rl:book",
	}, scripter, logger, rec)
}
