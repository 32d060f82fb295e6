package bookings

import (
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

type Status string

// Booking statuses
const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// CanTransition reports whether a booking may move from one status to another.
// Allowed: PENDING -> CONFIRMED, PENDING|CONFIRMED -> CANCELLED.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusConfirmed:
		return from == StatusPending
	case StatusCancelled:
		return from == StatusPending || from == StatusConfirmed
	}
	return false
}

// Record is a stored booking. ID, ReceivedAt, Status and Fingerprint are
// server-assigned; the rest is the validated request.
type Record struct {
	ID           string    `json:"id" dynamodbav:"booking_id"` // PK
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	Phone        string    `json:"phone" dynamodbav:"phone"`
	Venue        string    `json:"venue" dynamodbav:"venue"`
	Date         string    `json:"date" dynamodbav:"date"`
	Time         string    `json:"time" dynamodbav:"time"`
	Package      string    `json:"package" dynamodbav:"package"`
	Notes        string    `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
	PackageLabel string    `json:"packageLabel,omitempty" dynamodbav:"package_label,omitempty"`
	PriceCents   int64     `json:"priceCents,omitempty" dynamodbav:"price_cents,omitempty"`
	ReceivedAt   time.Time `json:"receivedAt" dynamodbav:"received_at"`
	Status       Status    `json:"status" dynamodbav:"status"`
	Fingerprint  string    `json:"fingerprint" dynamodbav:"fingerprint"`
	UpdatedAt    time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// Request returns the customer-supplied part of the record.
func (r *Record) Request() validation.BookingRequest {
	return validation.BookingRequest{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Venue:   r.Venue,
		Date:    r.Date,
		Time:    r.Time,
		Package: r.Package,
		Notes:   r.Notes,
	}
}

// Active is true for records that still hold their fingerprint.
func (r *Record) Active() bool {
	return r.Status != StatusCancelled
}
