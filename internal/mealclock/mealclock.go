// Package mealclock centralizes every "what time is it at the mess"
// decision: slot cutoffs, serving windows, and day bucketing. All other
// packages ask this one instead of doing timezone math themselves.
package mealclock

import (
	"fmt"
	"time"
)

// Slot is one of the three daily meal slots.
type Slot string

const (
	Breakfast Slot = "breakfast"
	Lunch     Slot = "lunch"
	Dinner    Slot = "dinner"
)

// Slots lists all slots in serving order.
var Slots = []Slot{Breakfast, Lunch, Dinner}

// ParseSlot validates a slot string from the wire.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(s) {
	case Breakfast, Lunch, Dinner:
		return Slot(s), true
	}
	return "", false
}

// CutoffHour is the local hour at/after which a NO is no longer accepted.
func (s Slot) CutoffHour() int {
	switch s {
	case Breakfast:
		return 6
	case Lunch:
		return 11
	default:
		return 17
	}
}

// servingWindow returns the start (inclusive) and end (exclusive) local
// hours during which the slot is actively served.
func (s Slot) servingWindow() (int, int) {
	switch s {
	case Breakfast:
		return 7, 9
	case Lunch:
		return 12, 14
	default:
		return 19, 21
	}
}

// Clock resolves "now". Injected so the rule engine can be tested with a
// fixed instant.
type Clock interface {
	Now() time.Time
}

// realClock is the wall clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fixed returns a Clock pinned at t.
func Fixed(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// Mess resolves civil time in the mess's fixed timezone.
type Mess struct {
	loc   *time.Location
	clock Clock
}

// New loads the named timezone and uses the wall clock.
func New(tz string) (*Mess, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load mess timezone %q: %w", tz, err)
	}
	return &Mess{loc: loc, clock: realClock{}}, nil
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(tz string, clock Clock) (*Mess, error) {
	m, err := New(tz)
	if err != nil {
		return nil, err
	}
	m.clock = clock
	return m, nil
}

// Now is the current instant shifted into the mess timezone.
func (m *Mess) Now() time.Time {
	return m.clock.Now().In(m.loc)
}

// Today is the current civil date at the mess, midnight local.
func (m *Mess) Today() time.Time {
	now := m.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.loc)
}

// DayBounds returns [start, end) for the civil date containing t.
func (m *Mess) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(m.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.loc)
	return start, start.AddDate(0, 0, 1)
}

// CutoffPassed reports whether the slot's NO cutoff has passed at the
// current instant. The comparison is on the local hour only, matching
// the posted mess rules (e.g. lunch closes at 11:00 sharp).
func (m *Mess) CutoffPassed(slot Slot) bool {
	return m.Now().Hour() >= slot.CutoffHour()
}

// CurrentSlot returns the slot whose serving window contains the current
// instant, or false when no meal is being served.
func (m *Mess) CurrentSlot() (Slot, bool) {
	hour := m.Now().Hour()
	for _, slot := range Slots {
		start, end := slot.servingWindow()
		if hour >= start && hour < end {
			return slot, true
		}
	}
	return "", false
}
