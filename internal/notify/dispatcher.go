package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/metrics"
)

// Dispatcher delivers notifications in the background so intake never waits
// on a channel. The queue is bounded; when it is full the alert is dropped
// and logged.
type Dispatcher struct {
	notifier Notifier
	workers  int
	logger   *slog.Logger
	metrics  metrics.Recorder

	mu      sync.RWMutex
	queue   chan bookings.Record
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// pending counts alerts queued or in delivery; idle is closed while it
	// is zero.
	pmu     sync.Mutex
	pending int
	idle    chan struct{}
}

func NewDispatcher(n Notifier, workers, queueSize int, logger *slog.Logger, rec metrics.Recorder) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	idle := make(chan struct{})
	close(idle)
	return &Dispatcher{
		notifier: n,
		workers:  workers,
		logger:   logger,
		metrics:  rec,
		queue:    make(chan bookings.Record, queueSize),
		idle:     idle,
	}
}

func (d *Dispatcher) begin() {
	d.pmu.Lock()
	if d.pending == 0 {
		d.idle = make(chan struct{})
	}
	d.pending++
	d.pmu.Unlock()
}

func (d *Dispatcher) done() {
	d.pmu.Lock()
	d.pending--
	if d.pending == 0 {
		close(d.idle)
	}
	d.pmu.Unlock()
}

// Pending reports alerts queued or in delivery.
func (d *Dispatcher) Pending() int {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	return d.pending
}

// WaitIdle blocks until every accepted alert has been delivered or given up
// on, or ctx ends. Hosts that freeze the process between requests (Lambda)
// call it before returning a response.
func (d *Dispatcher) WaitIdle(ctx context.Context) error {
	d.pmu.Lock()
	idle := d.idle
	d.pmu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers. ctx bounds in-flight deliveries.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for rec := range d.queue {
		d.deliver(ctx, rec)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rec bookings.Record) {
	defer d.done()
	res := d.notifier.Notify(ctx, rec)
	if !res.Delivered {
		d.metrics.Incr(metrics.NotifyFailed)
		return
	}
	d.metrics.Incr(metrics.NotifyDelivered)
	d.logger.DebugContext(ctx, "notify_delivered",
		"booking_id", rec.ID,
		"channel", res.Channel,
		"attempts", res.Attempts,
	)
}

// Enqueue schedules a notification for rec. It never blocks and reports
// false when the alert was dropped.
func (d *Dispatcher) Enqueue(rec bookings.Record) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Warn("notify_dropped", "booking_id", rec.ID, "reason", "stopped")
		d.metrics.Incr(metrics.NotifyDropped)
		return false
	}
	d.begin()
	select {
	case d.queue <- rec:
		return true
	default:
		d.done()
		d.logger.Warn("notify_dropped", "booking_id", rec.ID, "reason", "queue_full")
		d.metrics.Incr(metrics.NotifyDropped)
		return false
	}
}

// Stop refuses new work and waits for queued alerts to drain. If ctx ends
// first, in-flight deliveries are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	cancel := d.cancel
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if cancel != nil {
			cancel()
		}
		return nil
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		<-done
		return ctx.Err()
	}
}
