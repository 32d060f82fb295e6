package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

type proxyFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

type idleWaiter interface {
	WaitIdle(ctx context.Context) error
	Pending() int
}

type flusher interface {
	Flush(ctx context.Context) error
}

// metricsFlushTimeout bounds the per-invocation metrics flush.
const metricsFlushTimeout = 2 * time.Second

// lambdaHandler holds the response until queued alerts are delivered and
// buffered metrics are flushed. The runtime freezes the sandbox once the
// handler returns, so nothing may be left running in the background.
func lambdaHandler(proxy proxyFunc, d idleWaiter, m flusher, drain time.Duration, logger *slog.Logger) proxyFunc {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := proxy(ctx, req)

		waitCtx, cancel := context.WithTimeout(ctx, drain)
		if werr := d.WaitIdle(waitCtx); werr != nil {
			logger.Warn("notify_drain_incomplete", "pending", d.Pending(), "error", werr)
		}
		cancel()

		if m != nil {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsFlushTimeout)
			if ferr := m.Flush(flushCtx); ferr != nil {
				logger.Warn("metrics_flush_failed", "error", ferr)
			}
			cancel()
		}
		return resp, err
	}
}
