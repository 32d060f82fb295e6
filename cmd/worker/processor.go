package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/imrishuroy/jolly-booking-intake/internal/metrics"
	"github.com/imrishuroy/jolly-booking-intake/internal/notify"
)

// Processor delivers booking alerts taken off the SQS queue.
type Processor struct {
	deliverer Deliverer
	seen      seenCache
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewProcessor creates a worker processor. cacheSize bounds the redelivery
// memory of a warm Lambda container.
func NewProcessor(d Deliverer, cacheSize int, logger *slog.Logger, rec metrics.Recorder) (*Processor, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("dedupe cache: %w", err)
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Processor{
		deliverer: d,
		seen:      cache,
		logger:    logger,
		metrics:   rec,
	}, nil
}

// Handle processes a batch and reports the messages that should be retried.
// Failed messages go back to the queue and end up in the DLQ after
// maxReceiveCount.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range ev.Records {
		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.ErrorContext(ctx, "worker_message_failed",
				"message_id", msg.MessageId,
				"error", err,
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: msg.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, msg events.SQSMessage) error {
	var alert notify.Alert
	if err := json.Unmarshal([]byte(msg.Body), &alert); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if alert.BookingID == "" || alert.Kind == "" {
		return fmt.Errorf("message %s is not a booking alert", msg.MessageId)
	}

	key := alert.DedupeKey()
	if p.seen.Contains(key) {
		p.metrics.Incr(metrics.WorkerRedelivery)
		p.logger.InfoContext(ctx, "worker_duplicate_delivery", "booking_id", alert.BookingID, "kind", alert.Kind)
		return nil
	}

	res := p.deliverer.Deliver(ctx, alert)
	if !res.Delivered {
		p.metrics.Incr(metrics.NotifyFailed)
		return fmt.Errorf("deliver %s via %s after %d attempts: %w", key, res.Channel, res.Attempts, res.Err)
	}

	p.seen.Add(key, struct{}{})
	p.metrics.Incr(metrics.WorkerProcessed)
	p.logger.InfoContext(ctx, "worker_delivered",
		"booking_id", alert.BookingID,
		"kind", alert.Kind,
		"channel", res.Channel,
		"attempts", res.Attempts,
	)
	return nil
}
