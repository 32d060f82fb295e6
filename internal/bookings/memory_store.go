package bookings

import (
	"context"
	"sync"
	"time"

	"github.com/imrishuroy/jolly-booking-intake/internal/idempotency"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

// MemoryStore keeps bookings for the lifetime of the process. One mutex
// serializes all writers, which gives Put its at-most-one-winner semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	active  map[string]string // fingerprint -> booking id
	clock   *Clock
	newID   func() string
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		records: map[string]*Record{},
		active:  map[string]string{},
		clock:   NewClock(now),
		newID:   newID,
	}
}

func (s *MemoryStore) Put(ctx context.Context, b validation.ValidatedBooking) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := b.Request
	fp := idempotency.Fingerprint(req.Email, req.Date, req.Time, req.Package)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[fp]; ok {
		return nil, &DuplicateError{ExistingID: id}
	}
	rec := newRecord(b, s.newID(), s.clock.Now())
	s.records[rec.ID] = rec
	s.active[fp] = rec.ID

	out := *rec
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, to Status) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(rec.Status, to) {
		return nil, &InvalidTransitionError{From: rec.Status, To: to}
	}
	rec.Status = to
	rec.UpdatedAt = s.clock.Now()
	if !rec.Active() && s.active[rec.Fingerprint] == id {
		delete(s.active, rec.Fingerprint)
	}
	out := *rec
	return &out, nil
}

// Len reports how many records were ever stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
