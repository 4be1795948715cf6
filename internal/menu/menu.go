// Package menu manages meal instances: the per-day menu staff enter,
// one row per calendar date with the three slot descriptions. Re-entry
// for a date merges into the existing row.
package menu

import (
	"time"

	"mess/internal/mealclock"
)

// MealInstance is one calendar day's offering across the three slots.
type MealInstance struct {
	ID        string    `json:"id"`
	MenuDate  time.Time `json:"date"`
	Breakfast string    `json:"breakfast"`
	Lunch     string    `json:"lunch"`
	Dinner    string    `json:"dinner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemsFor returns the menu text for a slot.
func (m MealInstance) ItemsFor(slot mealclock.Slot) string {
	switch slot {
	case mealclock.Breakfast:
		return m.Breakfast
	case mealclock.Lunch:
		return m.Lunch
	default:
		return m.Dinner
	}
}

// SlotStats is one row of the staff dashboard: per-slot headcounts for a
// date's meal instance.
type SlotStats struct {
	Slot     mealclock.Slot `json:"meal_slot"`
	Items    string         `json:"items"`
	YesCount int            `json:"yes_count"`
	NoCount  int            `json:"no_count"`
}
