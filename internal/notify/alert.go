package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/catalog"
)

// Alert kinds double as AMQP routing keys.
const (
	KindCreated   = "booking.created"
	KindConfirmed = "booking.confirmed"
	KindCancelled = "booking.cancelled"
)

// Alert is the owner-facing message about a booking event. It is the SQS
// message body between the API and the worker.
type Alert struct {
	Kind       string          `json:"kind"`
	BookingID  string          `json:"bookingId"`
	Status     bookings.Status `json:"status"`
	Subject    string          `json:"subject"`
	Body       string          `json:"body"`
	To         string          `json:"to,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// DedupeKey identifies one event of one booking across redeliveries.
func (a Alert) DedupeKey() string {
	return a.BookingID + "/" + a.Kind
}

func kindFor(s bookings.Status) string {
	switch s {
	case bookings.StatusConfirmed:
		return KindConfirmed
	case bookings.StatusCancelled:
		return KindCancelled
	default:
		return KindCreated
	}
}

// NewAlert renders the alert for the record's current status. to is the
// owner contact, empty when unset.
func NewAlert(rec bookings.Record, to string) Alert {
	label := rec.PackageLabel
	if label == "" {
		label = rec.Package
	}

	var subject string
	switch rec.Status {
	case bookings.StatusConfirmed:
		subject = fmt.Sprintf("Booking confirmed: %s on %s %s", label, rec.Date, rec.Time)
	case bookings.StatusCancelled:
		subject = fmt.Sprintf("Booking cancelled: %s on %s %s", label, rec.Date, rec.Time)
	default:
		subject = fmt.Sprintf("New booking: %s on %s %s", label, rec.Date, rec.Time)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Booking %s (%s)\n", rec.ID, rec.Status)
	fmt.Fprintf(&b, "Customer: %s <%s> %s\n", rec.Name, rec.Email, rec.Phone)
	fmt.Fprintf(&b, "Venue: %s\n", rec.Venue)
	fmt.Fprintf(&b, "When: %s at %s\n", rec.Date, rec.Time)
	if rec.PriceCents > 0 {
		price := catalog.Offering{PriceCents: rec.PriceCents}.Price()
		fmt.Fprintf(&b, "Package: %s (%s)\n", label, price)
	} else {
		fmt.Fprintf(&b, "Package: %s\n", label)
	}
	if rec.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", rec.Notes)
	}

	occurred := rec.UpdatedAt
	if occurred.IsZero() {
		occurred = rec.ReceivedAt
	}
	return Alert{
		Kind:       kindFor(rec.Status),
		BookingID:  rec.ID,
		Status:     rec.Status,
		Subject:    subject,
		Body:       b.String(),
		To:         to,
		OccurredAt: occurred,
	}
}
