package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/logging"
	"github.com/imrishuroy/jolly-booking-intake/internal/notify"
)

// slowNotifier delivers after a fixed delay.
type slowNotifier struct {
	delay     time.Duration
	delivered atomic.Int32
}

func (n *slowNotifier) Notify(ctx context.Context, rec bookings.Record) notify.Result {
	select {
	case <-time.After(n.delay):
		n.delivered.Add(1)
		return notify.Result{Channel: "slow", Delivered: true, Attempts: 1}
	case <-ctx.Done():
		return notify.Result{Channel: "slow", Attempts: 1, Err: ctx.Err()}
	}
}

type countingFlusher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFlusher) Flush(ctx context.Context) error {
	f.calls.Add(1)
	return f.err
}

// enqueueingProxy stands in for the gin adapter: it queues an alert and
// answers straight away, like POST /api/book does.
func enqueueingProxy(d *notify.Dispatcher) proxyFunc {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		d.Enqueue(bookings.Record{ID: "b-1", Name: "Ana", Package: "bar-45"})
		return events.APIGatewayProxyResponse{StatusCode: http.StatusCreated}, nil
	}
}

func TestLambdaHandler_WaitsForQueuedAlert(t *testing.T) {
	n := &slowNotifier{delay: 20 * time.Millisecond}
	d := notify.NewDispatcher(n, 1, 4, logging.Discard(), nil)
	d.Start(context.Background())
	defer d.Stop(context.Background())
	f := &countingFlusher{}

	h := lambdaHandler(enqueueingProxy(d), d, f, time.Second, logging.Discard())
	resp, err := h(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if got := n.delivered.Load(); got != 1 {
		t.Fatalf("alert must be delivered before the handler returns, got %d", got)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected one metrics flush, got %d", f.calls.Load())
	}
}

func TestLambdaHandler_DrainIsBounded(t *testing.T) {
	n := &slowNotifier{delay: time.Hour}
	d := notify.NewDispatcher(n, 1, 4, logging.Discard(), nil)
	d.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_ = d.Stop(ctx)
	}()

	h := lambdaHandler(enqueueingProxy(d), d, nil, 20*time.Millisecond, logging.Discard())
	start := time.Now()
	resp, err := h(context.Background(), events.APIGatewayProxyRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("response must survive a stuck alert, got %d", resp.StatusCode)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("drain not bounded: %v", elapsed)
	}
	if d.Pending() != 1 {
		t.Fatalf("stuck alert should still be pending, got %d", d.Pending())
	}
}

func TestLambdaHandler_PassesThroughProxyErrorAndFlushFailure(t *testing.T) {
	d := notify.NewDispatcher(&slowNotifier{}, 1, 1, logging.Discard(), nil)
	f := &countingFlusher{err: errors.New("cloudwatch down")}
	boom := errors.New("adapter failed")
	proxy := func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{}, boom
	}

	h := lambdaHandler(proxy, d, f, time.Second, logging.Discard())
	if _, err := h(context.Background(), events.APIGatewayProxyRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected proxy error, got %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("metrics should flush even when the proxy fails")
	}
}
