package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSourceUnavailable means the checker could not reach its data source.
// Callers must treat this as blocking, never as available.
var ErrSourceUnavailable = errors.New("availability unknown: booking source unreachable")

// Booked is one active appointment occupying an advisor's time.
type Booked struct {
	ID    uuid.UUID
	Start time.Time
}

// Source lists the active (non-cancelled, non-no-show) bookings of an advisor.
type Source interface {
	ActiveBookings(ctx context.Context, advisorID uuid.UUID) ([]Booked, error)
}

type Result struct {
	Available bool
	Conflict  *Booked
}

// Checker decides whether booking an advisor at a candidate time would
// collide with an existing appointment. The check is advisory: the store's
// uniqueness constraint is the final arbiter for races that slip through.
type Checker struct {
	src          Source
	slotDuration time.Duration
	timeout      time.Duration
}

// NewChecker builds a checker. slotDuration 0 keeps the discrete-slot rule
// where only exact-instant matches conflict; a positive duration switches to
// half-open interval overlap.
func NewChecker(src Source, slotDuration, timeout time.Duration) *Checker {
	return &Checker{
		src:          src,
		slotDuration: slotDuration,
		timeout:      timeout,
	}
}

// Check scans the advisor's active bookings for a conflict with candidate.
// exclude skips the appointment being edited so it cannot conflict with
// itself. A source failure or timeout returns ErrSourceUnavailable.
func (c *Checker) Check(ctx context.Context, advisorID uuid.UUID, candidate time.Time, exclude *uuid.UUID) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	booked, err := c.src.ActiveBookings(ctx, advisorID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	for _, b := range booked {
		if exclude != nil && b.ID == *exclude {
			continue
		}
		if c.conflicts(b.Start, candidate) {
			conflict := b
			return Result{Available: false, Conflict: &conflict}, nil
		}
	}

	return Result{Available: true}, nil
}

func (c *Checker) conflicts(existing, candidate time.Time) bool {
	if c.slotDuration <= 0 {
		return existing.Equal(candidate)
	}
	// Half-open intervals: [candidate, candidate+d) overlaps [existing, existing+d)
	// iff candidate < existing+d && existing < candidate+d.
	return candidate.Before(existing.Add(c.slotDuration)) && existing.Before(candidate.Add(c.slotDuration))
}
