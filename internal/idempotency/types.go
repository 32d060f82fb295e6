package idempotency

import "time"

// Claim marks a fingerprint as taken by an active (non-cancelled) booking.
// It is the shape persisted in the fingerprints DynamoDB table.
type Claim struct {
	Fingerprint string    `dynamodbav:"fingerprint"` // PK
	BookingID   string    `dynamodbav:"booking_id"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}
