package appointment

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// ValidationError names the missing or invalid field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TransitionParams carries the operator-supplied fields a transition may
// require before it is allowed to commit.
type TransitionParams struct {
	CancellationReason string
	FollowUpNotes      string
	RescheduledDate    *time.Time
}

// Changes is the set of field updates that commit together with a status
// write. Nil pointers leave the stored value untouched.
type Changes struct {
	Status             Status
	AppointmentDate    *time.Time
	RescheduledDate    *time.Time
	FollowUpNotes      *string
	CancellationReason *string
}

// SideEffect is a post-commit action the caller executes after the store
// write succeeds. The transition itself never performs I/O.
type SideEffect string

const (
	EffectNotifyConfirmation SideEffect = "notify_confirmation"
)

// allowedTransitions is the full transition table. completed is terminal;
// cancelled and no_show free the advisor's slot and accept no further
// transitions. rescheduled behaves like pending at its new date.
var allowedTransitions = map[Status][]Status{
	StatusPending:     {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusCompleted, StatusNoShow, StatusCancelled, StatusRescheduled},
	StatusRescheduled: {StatusConfirmed, StatusCancelled},
}

func transitionAllowed(from, to Status) bool {
	if from == to {
		return false
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PlanTransition validates a status change against the transition table and
// the per-target required fields, and returns the field changes to commit
// plus the side effects to run after the commit. No store access happens
// here; the caller is responsible for conflict re-checks and persistence.
func PlanTransition(current Status, to Status, p TransitionParams) (Changes, []SideEffect, error) {
	if !transitionAllowed(current, to) {
		return Changes{}, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current, to)
	}

	ch := Changes{Status: to}
	var effects []SideEffect

	switch to {
	case StatusConfirmed:
		effects = append(effects, EffectNotifyConfirmation)

	case StatusCancelled:
		if p.CancellationReason == "" {
			return Changes{}, nil, &ValidationError{Field: "cancellation_reason", Reason: "required when cancelling"}
		}
		reason := p.CancellationReason
		ch.CancellationReason = &reason

	case StatusNoShow:
		if p.FollowUpNotes == "" {
			return Changes{}, nil, &ValidationError{Field: "follow_up_notes", Reason: "required when marking no-show"}
		}

	case StatusRescheduled:
		if p.RescheduledDate == nil || p.RescheduledDate.IsZero() {
			return Changes{}, nil, &ValidationError{Field: "rescheduled_date", Reason: "required when rescheduling"}
		}
		// The new date becomes the canonical conflict key going forward.
		newDate := *p.RescheduledDate
		ch.RescheduledDate = &newDate
		ch.AppointmentDate = &newDate
	}

	if p.FollowUpNotes != "" {
		notes := p.FollowUpNotes
		ch.FollowUpNotes = &notes
	}

	return ch, effects, nil
}
