package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
)

// Result reports one delivery. A failed delivery is soft: it never changes
// the outcome of the intake that triggered it.
type Result struct {
	Channel   string
	Delivered bool
	Attempts  int
	Err       error
}

type Notifier interface {
	Notify(ctx context.Context, rec bookings.Record) Result
}

// Backoff doubles the delay after every failed attempt, capped at Max.
type Backoff struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff is used when the configured policy is zero.
var DefaultBackoff = Backoff{
	Attempts:   5,
	Initial:    200 * time.Millisecond,
	Max:        10 * time.Second,
	Multiplier: 2,
}

// Delay returns the wait before attempt n+1, n starting at 1.
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * mult)
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// RetryNotifier renders the alert and sends it over one channel, retrying
// with backoff.
type RetryNotifier struct {
	channel Channel
	backoff Backoff
	to      string
	timeout time.Duration
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetryNotifier wires a channel with its retry policy. timeout bounds each
// single attempt; zero means no per-attempt bound. to is the owner contact
// stamped on alerts.
func NewRetryNotifier(ch Channel, b Backoff, timeout time.Duration, to string, logger *slog.Logger) *RetryNotifier {
	if b.Attempts <= 0 {
		b = DefaultBackoff
	}
	return &RetryNotifier{
		channel: ch,
		backoff: b,
		to:      to,
		timeout: timeout,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

func (n *RetryNotifier) Notify(ctx context.Context, rec bookings.Record) Result {
	return n.Deliver(ctx, NewAlert(rec, n.to))
}

// Deliver sends an already rendered alert.
func (n *RetryNotifier) Deliver(ctx context.Context, a Alert) Result {
	res := Result{Channel: n.channel.Name()}
	for attempt := 1; attempt <= n.backoff.Attempts; attempt++ {
		res.Attempts = attempt
		res.Err = n.send(ctx, a)
		if res.Err == nil {
			res.Delivered = true
			return res
		}
		n.logger.WarnContext(ctx, "notify_attempt_failed",
			"channel", res.Channel,
			"booking_id", a.BookingID,
			"kind", a.Kind,
			"attempt", attempt,
			"error", res.Err,
		)
		if attempt == n.backoff.Attempts {
			break
		}
		if err := n.sleep(ctx, n.backoff.Delay(attempt)); err != nil {
			res.Err = err
			break
		}
	}
	n.logger.WarnContext(ctx, "notify_gave_up",
		"channel", res.Channel,
		"booking_id", a.BookingID,
		"kind", a.Kind,
		"attempts", res.Attempts,
		"error", res.Err,
	)
	return res
}

func (n *RetryNotifier) send(ctx context.Context, a Alert) error {
	if n.timeout <= 0 {
		return n.channel.Send(ctx, a)
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.channel.Send(ctx, a)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
