package main

import (
	"context"

	"github.com/imrishuroy/jolly-booking-intake/internal/notify"
)

// Deliverer sends one alert downstream with its own retry policy.
type Deliverer interface {
	Deliver(ctx context.Context, a notify.Alert) notify.Result
}

// seenCache remembers alerts already delivered, so queue redeliveries are
// acknowledged without a second send.
type seenCache interface {
	Contains(key string) bool
	Add(key string, value struct{}) bool
}
