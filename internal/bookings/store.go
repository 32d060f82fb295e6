package bookings

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/jolly-booking-intake/internal/idempotency"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

// Store is the access contract for booking records. Implementations must
// make the duplicate check and insert of Put atomic per fingerprint.
//
// Errors: *DuplicateError from Put, ErrNotFound from Get/SetStatus,
// *InvalidTransitionError from SetStatus. Anything else is a storage failure
// and leaves nothing behind.
type Store interface {
	Put(ctx context.Context, b validation.ValidatedBooking) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	SetStatus(ctx context.Context, id string, to Status) (*Record, error)
}

// Clock hands out non-decreasing timestamps.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

func newID() string { return uuid.NewString() }

func newRecord(b validation.ValidatedBooking, id string, now time.Time) *Record {
	req := b.Request
	return &Record{
		ID:           id,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Venue:        req.Venue,
		Date:         req.Date,
		Time:         req.Time,
		Package:      req.Package,
		Notes:        req.Notes,
		PackageLabel: b.Offering.Label,
		PriceCents:   b.Offering.PriceCents,
		ReceivedAt:   now,
		Status:       StatusPending,
		Fingerprint:  idempotency.Fingerprint(req.Email, req.Date, req.Time, req.Package),
		UpdatedAt:    now,
	}
}
