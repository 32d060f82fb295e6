package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/jolly-booking-intake/internal/aws"
	"github.com/imrishuroy/jolly-booking-intake/internal/config"
	"github.com/imrishuroy/jolly-booking-intake/internal/logging"
	"github.com/imrishuroy/jolly-booking-intake/internal/metrics"
	"github.com/imrishuroy/jolly-booking-intake/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(string(cfg.Env), cfg.LogLevel)
	ctx := context.Background()

	// the worker is the SQS consumer, so it delivers over AMQP or the log
	var channel notify.Channel = notify.NewLogChannel(logger)
	if cfg.NotifyTransport == config.TransportAMQP {
		ch, err := notify.DialAMQP(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			log.Fatalf("failed to connect rabbitmq: %v", err)
		}
		defer ch.Close()
		channel = ch
	}

	var recorder metrics.Recorder = metrics.Nop{}
	var cw *metrics.CloudWatch
	if cfg.MetricsEnabled {
		clients, err := aws.NewAWSClients(ctx)
		if err != nil {
			log.Fatalf("failed to init aws clients: %v", err)
		}
		cw = metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace, logger)
		recorder = cw
	}

	backoff := notify.Backoff{
		Attempts:   cfg.NotifyAttempts,
		Initial:    cfg.NotifyBackoff,
		Max:        cfg.NotifyMaxDelay,
		Multiplier: 2,
	}
	deliverer := notify.NewRetryNotifier(channel, backoff, cfg.NotifyTimeout, cfg.OwnerContact, logger)

	proc, err := NewProcessor(deliverer, cfg.DedupeCacheSize, logger, recorder)
	if err != nil {
		log.Fatalf("failed to init processor: %v", err)
	}

	handler := func(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
		logger.InfoContext(ctx, "worker_batch_received", "messages", len(ev.Records))
		resp, err := proc.Handle(ctx, ev)
		if cw != nil {
			// containers freeze between invocations, so flush per batch
			if ferr := cw.Flush(ctx); ferr != nil {
				logger.WarnContext(ctx, "metrics_flush_failed", "error", ferr)
			}
		}
		return resp, err
	}

	// If RUN_LOCAL=true, process one alert from LOCAL_SQS_BODY and exit.
	if cfg.RunLocal {
		runLocal(ctx, handler, logger)
		return
	}

	lambda.Start(handler)
}

func runLocal(ctx context.Context, handler func(context.Context, events.SQSEvent) (events.SQSEventResponse, error), logger *slog.Logger) {
	body := os.Getenv("LOCAL_SQS_BODY")
	if body == "" {
		body = `{"kind":"booking.created","bookingId":"local-booking-1","status":"PENDING","subject":"New booking: Bar Set on 2025-12-20 19:00","body":"local test"}`
	}
	event := events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "local-1", Body: body},
		},
	}
	resp, err := handler(ctx, event)
	if err != nil {
		log.Fatalf("local handler error: %v", err)
	}
	logger.Info("local batch done", "failures", len(resp.BatchItemFailures))
}
