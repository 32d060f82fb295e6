package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the deduplication key of a booking slot: the same
// customer asking for the same package at the same date and time.
func Fingerprint(email, date, clock, pkg string) string {
	h := sha256.New()
	for i, part := range []string{
		strings.ToLower(strings.TrimSpace(email)),
		strings.TrimSpace(date),
		strings.TrimSpace(clock),
		strings.TrimSpace(pkg),
	} {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
