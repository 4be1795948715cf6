package attendance

import (
	"errors"
	"fmt"

	"mess/internal/mealclock"
)

// Validation and lookup failures. All caller-correctable, never fatal.
var (
	ErrMissingFields   = errors.New("student, meal instance and meal slot are required")
	ErrInvalidSlot     = errors.New("meal slot must be breakfast, lunch or dinner")
	ErrStudentNotFound = errors.New("student not found")
	ErrMealNotFound    = errors.New("meal instance not found")
)

// RejectionKind labels an expected business outcome, not a system failure.
type RejectionKind string

const (
	CutoffPassed      RejectionKind = "cutoff_passed"
	DuplicateResponse RejectionKind = "duplicate_response"
)

// Rejection is a policy refusal with enough detail to render a message.
type Rejection struct {
	Kind RejectionKind
	Slot mealclock.Slot
}

func (r *Rejection) Error() string {
	switch r.Kind {
	case CutoffPassed:
		return fmt.Sprintf("cutoff time (%02d:00) passed for %s, you can no longer skip this meal", r.Slot.CutoffHour(), r.Slot)
	case DuplicateResponse:
		return fmt.Sprintf("already marked NO for %s", r.Slot)
	}
	return string(r.Kind)
}

// AsRejection unwraps err as a policy rejection, if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
