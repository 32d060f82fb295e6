package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/metrics"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

// Enqueuer schedules a notification without waiting for it.
type Enqueuer interface {
	Enqueue(rec bookings.Record) bool
}

// Service turns booking submissions into stored records.
type Service struct {
	validator    *validation.Validator
	store        bookings.Store
	notifier     Enqueuer
	metrics      metrics.Recorder
	logger       *slog.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used for the "today" check.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithStoreTimeout bounds every store call. Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

func NewService(v *validation.Validator, store bookings.Store, notifier Enqueuer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		validator:    v,
		store:        store,
		notifier:     notifier,
		metrics:      metrics.Nop{},
		logger:       logger,
		storeTimeout: 3 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates, stores and schedules the owner alert. The alert is not
// awaited; its failure never changes the result.
func (s *Service) Submit(ctx context.Context, req validation.BookingRequest) Result {
	vb, errs := s.validator.Validate(req, s.now())
	if len(errs) > 0 {
		s.metrics.Incr(metrics.IntakeRejected)
		s.logger.InfoContext(ctx, "booking_rejected", "errors", validation.ErrorsToMap(errs))
		return Result{Outcome: Rejected, Errors: errs}
	}

	storeCtx, cancel := s.storeContext(ctx)
	rec, err := s.store.Put(storeCtx, vb)
	cancel()
	if err != nil {
		var dup *bookings.DuplicateError
		if errors.As(err, &dup) {
			s.metrics.Incr(metrics.IntakeDuplicate)
			s.logger.InfoContext(ctx, "booking_duplicate", "existing_id", dup.ExistingID)
			return Result{Outcome: Duplicate, ExistingID: dup.ExistingID}
		}
		reason := failureReason(err)
		s.metrics.Incr(metrics.IntakeFailed)
		s.logger.ErrorContext(ctx, "booking_store_failed", "reason", reason, "error", err)
		return Result{Outcome: Failed, Reason: reason}
	}

	s.metrics.Incr(metrics.IntakeAccepted)
	s.logger.InfoContext(ctx, "booking_accepted",
		"booking_id", rec.ID,
		"package", rec.Package,
		"date", rec.Date,
		"time", rec.Time,
	)
	s.notifier.Enqueue(*rec)
	return Result{Outcome: Accepted, ID: rec.ID, Record: rec}
}

// Get returns a stored booking.
func (s *Service) Get(ctx context.Context, id string) (*bookings.Record, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.store.Get(storeCtx, id)
}

func (s *Service) Confirm(ctx context.Context, id string) (*bookings.Record, error) {
	return s.transition(ctx, id, bookings.StatusConfirmed)
}

// Cancel frees the booking's slot so the same request can be made again.
func (s *Service) Cancel(ctx context.Context, id string) (*bookings.Record, error) {
	return s.transition(ctx, id, bookings.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id string, to bookings.Status) (*bookings.Record, error) {
	storeCtx, cancel := s.storeContext(ctx)
	rec, err := s.store.SetStatus(storeCtx, id, to)
	cancel()
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) || errors.Is(err, bookings.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("set status %s: %w", to, err)
	}
	s.logger.InfoContext(ctx, "booking_status_changed", "booking_id", id, "status", to)
	s.notifier.Enqueue(*rec)
	return rec, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonUnavailable
}
