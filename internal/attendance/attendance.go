// Package attendance implements the meal response lifecycle: YES/NO
// submissions against cutoff windows, entry-token issuance, and the
// reward points ledger.
package attendance

import (
	"time"

	"mess/internal/mealclock"
)

// Response is a student's answer for one meal slot.
type Response string

const (
	Yes Response = "YES"
	No  Response = "NO"
)

// Student is a mess resident. Points are mutated only through the
// ledger's credit path.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	RollNo    *string   `json:"roll_no,omitempty"`
	HostelID  *string   `json:"hostel_id,omitempty"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is one student's response to one meal instance for one slot.
// At most one exists per (student, meal instance, slot); re-submissions
// update in place.
type Record struct {
	ID            string         `json:"id"`
	StudentID     string         `json:"student_id"`
	MealID        string         `json:"meal_instance_id"`
	Slot          mealclock.Slot `json:"meal_slot"`
	Response      Response       `json:"response"`
	Token         *string        `json:"token,omitempty"`
	TokenIssuedAt *time.Time     `json:"token_issued_at,omitempty"`
	ValidUntil    *time.Time     `json:"valid_until,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NoEntry is one row of the staff-facing NO list for a meal.
type NoEntry struct {
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	RollNo      *string   `json:"roll_no,omitempty"`
	HostelID    *string   `json:"hostel_id,omitempty"`
	RespondedAt time.Time `json:"responded_at"`
}
