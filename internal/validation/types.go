package validation

import (
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/catalog"
)

// BookingRequest is the payload for POST /api/book. It is untrusted.
type BookingRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,max=254,email"`
	Phone   string `json:"phone" validate:"required,phone"`
	Venue   string `json:"venue" validate:"required,max=300"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02,notpast"` // ISO 8601 calendar date
	Time    string `json:"time" validate:"required,hhmm"`                        // local 24h HH:MM
	Package string `json:"package" validate:"required,offering"`                 // catalog offering id
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Reason is a machine-readable validation failure code.
type Reason string

const (
	ReasonRequired       Reason = "REQUIRED"
	ReasonFormat         Reason = "FORMAT"
	ReasonPastDate       Reason = "PAST_DATE"
	ReasonUnknownPackage Reason = "UNKNOWN_PACKAGE"
)

// FieldError names one offending field.
type FieldError struct {
	Field   string `json:"field"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidatedBooking is a normalized request that passed every rule.
type ValidatedBooking struct {
	Request  BookingRequest
	Day      time.Time // midnight of Request.Date in the business timezone
	Offering catalog.Offering
}
