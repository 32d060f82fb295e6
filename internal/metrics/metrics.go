package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/jolly-booking-intake/internal/aws"
)

// Counter names.
const (
	IntakeAccepted   = "IntakeAccepted"
	IntakeRejected   = "IntakeRejected"
	IntakeDuplicate  = "IntakeDuplicate"
	IntakeFailed     = "IntakeFailed"
	NotifyDelivered  = "NotifyDelivered"
	NotifyFailed     = "NotifyFailed"
	NotifyDropped    = "NotifyDropped"
	WorkerProcessed  = "WorkerProcessed"
	WorkerRedelivery = "WorkerRedelivery"
	RateLimited      = "RateLimited"
)

// Recorder counts events. Implementations must be safe for concurrent use.
type Recorder interface {
	Incr(name string)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Incr(string) {}

// maxDatumsPerCall is the PutMetricData per-request limit.
const maxDatumsPerCall = 1000

// CloudWatch accumulates counters in memory and ships them with Flush.
type CloudWatch struct {
	client    aws.CloudWatchAPI
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	counts map[string]float64
}

func NewCloudWatch(client aws.CloudWatchAPI, namespace string, logger *slog.Logger) *CloudWatch {
	return &CloudWatch{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
		counts:    map[string]float64{},
	}
}

func (c *CloudWatch) Incr(name string) {
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
}

// Pending returns the counts not yet flushed.
func (c *CloudWatch) Pending() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Flush sends the accumulated counters and resets them. On failure the
// counts are merged back so the next flush retries them.
func (c *CloudWatch) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.counts
	c.counts = map[string]float64{}
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	ts := c.now().UTC()
	data := make([]cwtypes.MetricDatum, 0, len(names))
	for _, name := range names {
		data = append(data, cwtypes.MetricDatum{
			MetricName: awsString(name),
			Value:      awsFloat(batch[name]),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  &ts,
		})
	}

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  &c.namespace,
			MetricData: data[start:end],
		})
		if err != nil {
			c.restore(names[start:], batch)
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}

func (c *CloudWatch) restore(names []string, batch map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		c.counts[name] += batch[name]
	}
}

// DefaultFlushInterval is used by Run when interval is not positive.
const DefaultFlushInterval = 30 * time.Second

// Run flushes every interval until ctx is done, then flushes once more.
func (c *CloudWatch) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				c.logger.Warn("metrics_flush_failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := c.Flush(final); err != nil {
				c.logger.Warn("metrics_flush_failed", "error", err)
			}
			cancel()
			return
		}
	}
}

func awsString(s string) *string { return &s }

func awsFloat(f float64) *float64 { return &f }
