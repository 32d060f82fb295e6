package intake

import (
	"github.com/imrishuroy/jolly-booking-intake/internal/bookings"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

type Outcome string

// Intake outcomes
const (
	Accepted  Outcome = "ACCEPTED"
	Rejected  Outcome = "REJECTED"
	Duplicate Outcome = "DUPLICATE"
	Failed    Outcome = "FAILED"
)

// Failure reasons
const (
	ReasonTimeout     = "timeout"
	ReasonUnavailable = "storage_unavailable"
)

// Result is the outcome of one submission. Exactly one of ID, ExistingID,
// Errors or Reason is meaningful, depending on Outcome.
type Result struct {
	Outcome    Outcome
	ID         string
	ExistingID string
	Errors     []validation.FieldError
	Reason     string
	Record     *bookings.Record
}
